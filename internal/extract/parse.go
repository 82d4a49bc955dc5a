package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	expectedTotalRe    = regexp.MustCompile(`en\s+([\d.,]+)\s+registros`)
	verificationCodeRe = regexp.MustCompile(`CVE[-\s]*([A-Za-z0-9]+)`)
	identifierTailRe   = regexp.MustCompile(`([\d.]+-?[\dkK]?)\s*$`)
	digitsOnlyRe       = regexp.MustCompile(`^\d+$`)
)

// ParseExpectedTotal extracts the self-reported record count from the table
// summary string. The page renders it for humans, thousands separators
// included, e.g. "Mostrando 1 a 50 en 1.234 registros".
func ParseExpectedTotal(text string) (int, error) {
	m := expectedTotalRe.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("no record count in summary %q", text)
	}
	cleaned := strings.NewReplacer(".", "", ",", "").Replace(m[1])
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("parse record count %q: %w", m[1], err)
	}
	return n, nil
}

// SplitIdentifier normalizes a raw tax identifier into its digits-only body
// and check digit. Accepts "76.123.456-7", "76123456-K" and bare digit runs.
func SplitIdentifier(raw string) (body, checkDigit string, err error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ".", "")
	if cleaned == "" {
		return "", "", fmt.Errorf("empty identifier")
	}
	if idx := strings.LastIndex(cleaned, "-"); idx >= 0 {
		body, checkDigit = cleaned[:idx], strings.ToUpper(cleaned[idx+1:])
	} else {
		body = cleaned
	}
	if !digitsOnlyRe.MatchString(body) {
		return "", "", fmt.Errorf("identifier body %q is not numeric", body)
	}
	if checkDigit != "" && len(checkDigit) != 1 {
		return "", "", fmt.Errorf("check digit %q is not a single character", checkDigit)
	}
	return body, checkDigit, nil
}

// SplitNameAndIdentifier splits a combined "name + tax id" cell by position:
// the identifier sits at the right edge, everything before it is the name.
func SplitNameAndIdentifier(cell string) (name, identifier string, err error) {
	cell = strings.TrimSpace(cell)
	m := identifierTailRe.FindStringSubmatchIndex(cell)
	if m == nil {
		return "", "", fmt.Errorf("no identifier at end of cell %q", cell)
	}
	identifier = strings.TrimSpace(cell[m[2]:m[3]])
	name = strings.TrimSpace(cell[:m[0]])
	if name == "" {
		return "", "", fmt.Errorf("no name portion in cell %q", cell)
	}
	return name, identifier, nil
}

// ParseVerificationCode pulls the short document code out of a link's visible
// text, e.g. "CVE 2255443" or "CVE-2255443".
func ParseVerificationCode(linkText string) (string, error) {
	m := verificationCodeRe.FindStringSubmatch(linkText)
	if m == nil {
		return "", fmt.Errorf("no verification code in link text %q", linkText)
	}
	return m[1], nil
}
