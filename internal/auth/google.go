package auth

import (
	"context"
	"fmt"
	"strings"

	appErrors "github.com/fatali-fataliyev/burn_tracker/customErrors"
	"google.golang.org/api/idtoken"
)

type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (GoogleIdentity, error)
}

// IDTokenVerifier checks Google ID tokens against Google's public keys for one OAuth client.
type IDTokenVerifier struct {
	ClientID string
}

func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{ClientID: clientID}
}

func (v *IDTokenVerifier) Verify(ctx context.Context, idToken string) (GoogleIdentity, error) {
	if strings.TrimSpace(idToken) == "" {
		return GoogleIdentity{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrInvalidInput,
			Message: "Google token cannot be empty!",
		}
	}

	payload, err := idtoken.Validate(ctx, idToken, v.ClientID)
	if err != nil {
		return GoogleIdentity{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Invalid Google Token",
		}
	}

	return identityFromClaims(payload.Subject, payload.Claims)
}

func identityFromClaims(subject string, claims map[string]interface{}) (GoogleIdentity, error) {
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	if subject == "" || email == "" {
		return GoogleIdentity{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: fmt.Sprintf("Google token is missing %s", missingClaim(subject, email)),
		}
	}

	// accounts are matched by email, so the email must be proven by Google
	if verified, _ := claims["email_verified"].(bool); !verified {
		return GoogleIdentity{}, appErrors.ErrorResponse{
			Code:    appErrors.ErrAuth,
			Message: "Google account email is not verified",
		}
	}

	return GoogleIdentity{
		GoogleID:      subject,
		Email:         strings.ToLower(email),
		EmailVerified: true,
		DisplayName:   name,
	}, nil
}

func missingClaim(subject, email string) string {
	if subject == "" {
		return "the subject"
	}
	return "the email"
}
