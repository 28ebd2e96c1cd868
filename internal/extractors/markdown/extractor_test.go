package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

func TestFileTypes(t *testing.T) {
	assert.Equal(t, []string{"md", "markdown"}, New().FileTypes())
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"heading", "# Annual Report\n\nRevenue up.", "Annual Report\n\nRevenue up."},
		{"emphasis", "This is **bold** and *italic*.", "This is bold and italic."},
		{"link", "See [the filing](https://sec.gov/x).", "See the filing."},
		{"image removed", "![chart](c.png)Total", "Total"},
		{"inline code kept", "Ticker `ACME`", "Ticker ACME"},
		{"list", "- cash\n- bonds", "cash\nbonds"},
		{"fenced block kept", "```\nQ1 100\n```", "Q1 100"},
		{"snake case kept", "net_income", "net_income"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Extract(context.Background(), []byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Nil(t *testing.T) {
	_, err := New().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
