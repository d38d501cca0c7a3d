package handler

import (
	"net/http"
	"strconv"
	"strings"

	"quorumcred/internal/credential/models"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	"quorumcred/pkg/platform/httputil"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// page holds the pagination and consistency parameters shared by list routes.
type page struct {
	after       domain.CredentialID
	limit       int
	minSequence uint64
}

func parsePage(r *http.Request) (page, error) {
	after, err := httputil.QueryUint(r, "after", 0)
	if err != nil {
		return page{}, err
	}
	minSeq, err := httputil.QueryUint(r, "min_sequence", 0)
	if err != nil {
		return page{}, err
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultPageSize, maxPageSize)
	if err != nil {
		return page{}, err
	}
	return page{after: domain.CredentialID(after), limit: limit, minSequence: minSeq}, nil
}

func parseLimit(raw string, fallback, ceiling int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
	}
	return min(n, ceiling), nil
}

// parseQuery converts the list filters into an index query. Unknown status
// values and malformed addresses are rejected rather than ignored.
func parseQuery(r *http.Request, p page) (models.Query, error) {
	values := r.URL.Query()
	q := models.Query{
		Text:    strings.TrimSpace(values.Get("search")),
		AfterID: p.after,
		Limit:   p.limit,
	}

	for _, f := range []struct {
		param string
		dst   **domain.Address
	}{
		{"student", &q.Student},
		{"issuer", &q.Issuer},
		{"signed_by", &q.SignedBy},
		{"not_signed_by", &q.NotSignedBy},
	} {
		raw := strings.TrimSpace(values.Get(f.param))
		if raw == "" {
			continue
		}
		addr, err := domain.ParseAddress(raw)
		if err != nil {
			return models.Query{}, dErrors.New(dErrors.CodeBadRequest, "invalid "+f.param+" filter")
		}
		*f.dst = &addr
	}

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return models.Query{}, dErrors.New(dErrors.CodeBadRequest, "invalid status filter")
		}
		q.Status = &status
	}
	return q, nil
}
