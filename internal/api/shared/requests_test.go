package shared

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunskii/studyhub/internal/domain"
)

type noteRequest struct {
	SubjectCode string `json:"subject_code" validate:"omitempty,max=16"`
	Count       int    `json:"count" validate:"gte=0"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    noteRequest
		wantErr error
	}{
		{name: "valid body", body: `{"subject_code":"MATH","count":2}`, want: noteRequest{SubjectCode: "MATH", Count: 2}},
		{name: "empty body", body: ``, want: noteRequest{}},
		{name: "malformed", body: `{"count":`, wantErr: domain.ErrInvalidFormat},
		{name: "unknown field", body: `{"count":1,"extra":true}`, wantErr: domain.ErrInvalidFormat},
		{name: "wrong type", body: `{"count":"two"}`, wantErr: domain.ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))

			var got noteRequest
			err := DecodeJSON(req, &got)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type selfValidating struct{ ok bool }

func (s selfValidating) Validate() error {
	if !s.ok {
		return domain.NewInvalidInputError("ok", "must be true")
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	t.Run("struct tags report JSON field names", func(t *testing.T) {
		t.Parallel()
		err := ValidateRequest(&noteRequest{Count: -1})

		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "count", verrs[0].Field())
		assert.Equal(t, "gte", verrs[0].Tag())
	})

	t.Run("valid struct", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, ValidateRequest(&noteRequest{SubjectCode: "MATH"}))
	})

	t.Run("Validate method takes precedence", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, ValidateRequest(selfValidating{}), domain.ErrInvalidInput)
		assert.NoError(t, ValidateRequest(selfValidating{ok: true}))
	})
}
