package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("page not found"), http.StatusNotFound},
		{"bad request", BadRequest("type doesn't exist"), http.StatusBadRequest},
		{"unauthorized", New(CodeUnauthorized, "login required"), http.StatusUnauthorized},
		{"wrapped not found", fmt.Errorf("route: %w", NotFound("x")), http.StatusNotFound},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"internal", Wrap(CodeInternal, "db", errors.New("locked")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestMessageHidesInternalDetail(t *testing.T) {
	assert.Equal(t, "Internal Server Error", Message(errors.New("no such table: pages")))
	assert.Equal(t, "Site not found", Message(BadRequest("Site not found")))
}

func TestFromNoRows(t *testing.T) {
	err := FromNoRows(sql.ErrNoRows, "page not found")
	assert.True(t, Is(err, CodeNotFound))
	assert.ErrorIs(t, err, sql.ErrNoRows)

	other := errors.New("disk I/O error")
	assert.Same(t, other, FromNoRows(other, "page not found"))
}
