// internal/app/features/team/helpers.go
package team

import (
	"errors"
	"net/http"

	"github.com/dalemusser/mansahub/internal/app/policy/adminpolicy"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// policyMessage returns the user-facing part of a policy rejection.
func policyMessage(err error) string {
	var ae *adminpolicy.AuthorizationError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return adminpolicy.MsgNotAllowedManage
}

func targetID(r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return oid, err == nil
}
