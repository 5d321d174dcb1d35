package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/ThanhXT2002/api-insurance-sub001/internal"
)

const testJWTSecret = "test-secret-key-for-verifier-spec-0"

func signTestToken(secret, subject, email string, ttl time.Duration) string {
	claims := Claims{
		Email: email,
		Name:  "Test User",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}

var _ = ginkgo.Describe("JWTVerifier", func() {
	var verifier *JWTVerifier

	ginkgo.BeforeEach(func() {
		verifier = NewJWTVerifier(testJWTSecret)
	})

	ginkgo.Context("when the token is valid", func() {
		ginkgo.It("should return the verified identity", func() {
			token := signTestToken(testJWTSecret, "sub-abc", "agent@example.com", time.Hour)

			verified, err := verifier.Verify(context.Background(), token)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(verified.SubjectID).To(gomega.Equal("sub-abc"))
			gomega.Expect(verified.Email).To(gomega.Equal("agent@example.com"))
			gomega.Expect(verified.Name).To(gomega.Equal("Test User"))
		})
	})

	ginkgo.Context("when the token is expired", func() {
		ginkgo.It("should return the expired-token error", func() {
			token := signTestToken(testJWTSecret, "sub-abc", "agent@example.com", -time.Hour)

			verified, err := verifier.Verify(context.Background(), token)

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(errors.Is(err, internal.ErrTokenExpired)).To(gomega.BeTrue())
			gomega.Expect(verified).To(gomega.BeNil())
		})
	})

	ginkgo.Context("when the token is invalid", func() {
		ginkgo.It("should reject a token signed with a different secret", func() {
			token := signTestToken("some-other-secret-entirely-0000000", "sub-abc", "agent@example.com", time.Hour)

			verified, err := verifier.Verify(context.Background(), token)

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(errors.Is(err, internal.ErrInvalidToken)).To(gomega.BeTrue())
			gomega.Expect(verified).To(gomega.BeNil())
		})

		ginkgo.It("should reject a malformed token", func() {
			verified, err := verifier.Verify(context.Background(), "not.a.jwt")

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(errors.Is(err, internal.ErrInvalidToken)).To(gomega.BeTrue())
			gomega.Expect(verified).To(gomega.BeNil())
		})

		ginkgo.It("should reject a token without a subject", func() {
			token := signTestToken(testJWTSecret, "", "agent@example.com", time.Hour)

			verified, err := verifier.Verify(context.Background(), token)

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(errors.Is(err, internal.ErrInvalidToken)).To(gomega.BeTrue())
			gomega.Expect(verified).To(gomega.BeNil())
		})
	})
})
