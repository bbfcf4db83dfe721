package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslations(t *testing.T) {
	require.NoError(t, Initialize())

	assert.Equal(t, []string{"en", "es"}, GetSupportedLanguages())
	assert.Equal(t, "Phase not found", T("en", KeyPhaseNotFound))
	assert.Equal(t, "Fase no encontrada", T("es", KeyPhaseNotFound))
	assert.Equal(t, "Invalid amount", T("en", KeyValidationInvalid, "amount"))
	assert.Equal(t, "Phase not found", T("fr", KeyPhaseNotFound), "unknown languages fall back to English")
	assert.Equal(t, "missing.key", T("en", "missing.key"))
}

func TestLocalesDefineTheSameKeys(t *testing.T) {
	require.NoError(t, Initialize())

	en := instance.translations["en"]
	es := instance.translations["es"]
	for key := range en {
		assert.Contains(t, es, key)
	}
	assert.Len(t, es, len(en))
}
