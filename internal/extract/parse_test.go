package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseExpectedTotal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want int
	}{
		{"Mostrando 1 a 50 en 1.234 registros", 1234},
		{"Mostrando 1 a 7 en 7 registros", 7},
		{"en 12,345 registros", 12345},
	}
	for _, tc := range cases {
		got, err := ParseExpectedTotal(tc.text)
		require.NoError(t, err, tc.text)
		require.Equal(t, tc.want, got, tc.text)
	}

	_, err := ParseExpectedTotal("sin resultados")
	require.Error(t, err)
}

func TestSplitIdentifier(t *testing.T) {
	t.Parallel()

	body, check, err := SplitIdentifier("76.123.456-7")
	require.NoError(t, err)
	require.Equal(t, "76123456", body)
	require.Equal(t, "7", check)

	body, check, err = SplitIdentifier("76123456-k")
	require.NoError(t, err)
	require.Equal(t, "76123456", body)
	require.Equal(t, "K", check)

	body, check, err = SplitIdentifier("99555111")
	require.NoError(t, err)
	require.Equal(t, "99555111", body)
	require.Empty(t, check)

	_, _, err = SplitIdentifier("SOCIEDAD ANONIMA")
	require.Error(t, err)
	_, _, err = SplitIdentifier("")
	require.Error(t, err)
}

func TestSplitNameAndIdentifier(t *testing.T) {
	t.Parallel()

	name, id, err := SplitNameAndIdentifier("COMERCIAL LOS ANDES SpA 76.123.456-7")
	require.NoError(t, err)
	require.Equal(t, "COMERCIAL LOS ANDES SpA", name)
	require.Equal(t, "76.123.456-7", id)

	_, _, err = SplitNameAndIdentifier("SOLO NOMBRE SIN RUT")
	require.Error(t, err)
}

func TestParseVerificationCode(t *testing.T) {
	t.Parallel()

	code, err := ParseVerificationCode("CVE 2255443")
	require.NoError(t, err)
	require.Equal(t, "2255443", code)

	code, err = ParseVerificationCode("Ver CVE-2255443 (PDF)")
	require.NoError(t, err)
	require.Equal(t, "2255443", code)

	_, err = ParseVerificationCode("descargar documento")
	require.Error(t, err)
}
