package catalog

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Order(t *testing.T) {
	cat := New()

	order := cat.Order()
	require.Len(t, order, 24)
	assert.Equal(t, 24, cat.Size())

	assert.Equal(t, "hemoglobin", order[0])
	assert.Equal(t, "wbc_count", order[1])
	assert.Equal(t, "glucose", order[3])
	assert.Equal(t, "troponin", order[16])
	assert.Equal(t, "lactate", order[23])
}

func TestCatalog_Definitions(t *testing.T) {
	cat := New()

	tests := []struct {
		id         string
		code       string
		unit       string
		normalLow  float64
		normalHigh float64
	}{
		{"hemoglobin", "HGB", "g/dL", 12, 17},
		{"wbc_count", "WBC", "x10^3/uL", 4, 11},
		{"potassium", "K", "mEq/L", 3.5, 5.0},
		{"troponin", "TNI", "ng/mL", 0, 0.04},
		{"procalcitonin", "PCT", "ng/mL", 0, 0.25},
		{"lactate", "LAC", "mmol/L", 0.5, 2.2},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			def, ok := cat.Get(tt.id)
			require.True(t, ok)
			assert.Equal(t, tt.code, def.Code)
			assert.Equal(t, tt.unit, def.Unit)
			assert.Equal(t, tt.normalLow, def.NormalLow)
			assert.Equal(t, tt.normalHigh, def.NormalHigh)
		})
	}
}

func TestCatalog_Resolve(t *testing.T) {
	cat := New()

	tests := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{"Canonical ID", "hemoglobin", "hemoglobin", true},
		{"Uppercase code", "HGB", "hemoglobin", true},
		{"Lowercase alias", "wbc", "wbc_count", true},
		{"Mixed case", "Troponin", "troponin", true},
		{"Spaces to underscores", "white blood cell count", "wbc_count", true},
		{"Hyphens to underscores", "d-dimer", "d_dimer", true},
		{"Surrounding whitespace", "  lactate  ", "lactate", true},
		{"Legacy name", "sgpt", "alt", true},
		{"Unknown", "cholesterol", "", false},
		{"Empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := cat.Resolve(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, id)
			}
		})
	}
}

func TestCatalog_CriticalBounds(t *testing.T) {
	cat := New()

	// total_protein and esr have no critical bounds at all
	tp, ok := cat.Get("total_protein")
	require.True(t, ok)
	assert.Nil(t, tp.CriticalLow)
	assert.Nil(t, tp.CriticalHigh)

	// creatinine only escalates upward
	creat, ok := cat.Get("creatinine")
	require.True(t, ok)
	assert.Nil(t, creat.CriticalLow)
	require.NotNil(t, creat.CriticalHigh)
	assert.Equal(t, 10.0, *creat.CriticalHigh)

	// hemoglobin escalates in both directions
	hgb, ok := cat.Get("hemoglobin")
	require.True(t, ok)
	require.NotNil(t, hgb.CriticalLow)
	require.NotNil(t, hgb.CriticalHigh)
	assert.Equal(t, 7.0, *hgb.CriticalLow)
	assert.Equal(t, 20.0, *hgb.CriticalHigh)
}

func TestCatalog_TemplateJSON(t *testing.T) {
	cat := New()

	tmpl, err := cat.Template("json")
	require.NoError(t, err)

	var panel map[string]float64
	require.NoError(t, json.Unmarshal([]byte(tmpl), &panel))
	require.Len(t, panel, 24)

	// Every template value sits inside its reference interval
	for id, value := range panel {
		def, ok := cat.Get(id)
		require.True(t, ok, "template key %s not in catalog", id)
		assert.GreaterOrEqual(t, value, def.NormalLow, "%s below range", id)
		assert.LessOrEqual(t, value, def.NormalHigh, "%s above range", id)
	}

	assert.Equal(t, 14.5, panel["hemoglobin"])
}

func TestCatalog_TemplateCSV(t *testing.T) {
	cat := New()

	tmpl, err := cat.Template("csv")
	require.NoError(t, err)

	tokens := strings.Split(tmpl, ",")
	assert.Len(t, tokens, 24)
}

func TestCatalog_TemplateKeyValue(t *testing.T) {
	cat := New()

	tmpl, err := cat.Template("key_value")
	require.NoError(t, err)

	pairs := strings.Split(tmpl, ",")
	require.Len(t, pairs, 24)
	for _, pair := range pairs {
		assert.Contains(t, pair, "=")
	}
}

func TestCatalog_TemplateUnknownFormat(t *testing.T) {
	cat := New()

	_, err := cat.Template("xml")
	assert.Error(t, err)
}
