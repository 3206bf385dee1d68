package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vprep/preparator-backend-go/internal/pkg/jwt"
)

const maxBodyBytes = 1 << 20

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// agencyFor picks the agency from the body, falling back to the token.
func agencyFor(claims jwt.Claims, requested string) string {
	if requested != "" {
		return requested
	}
	return claims.AgencyID
}
