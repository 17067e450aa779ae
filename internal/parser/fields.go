package parser

import (
	"strings"

	"github.com/dshills/exfor-index/pkg/types"
)

// code is one parenthesised code string of a BIB field
type code struct {
	pointer string
	text    string // Including the outer parentheses, blanks removed
}

// extractCodes collects the code strings of a field. A code opens on a line
// whose text starts with "(" and runs, across lines, until its parentheses
// balance; anything else is free text. kind classifies unbalanced codes.
func extractCodes(lines []line, kind types.ErrorKind) ([]code, error) {
	var (
		codes   []code
		buf     strings.Builder
		pointer string
		open    bool
	)

	for _, l := range lines {
		if !open {
			if !strings.HasPrefix(l.text, "(") {
				continue
			}
			open = true
			pointer = l.pointer
			if pointer == "" {
				pointer = types.BlankPointer
			}
			buf.Reset()
		}

		buf.WriteString(strings.ReplaceAll(l.text, " ", ""))
		s := buf.String()
		if end := closingParen(s, 0); end >= 0 {
			codes = append(codes, code{pointer: pointer, text: s[:end+1]})
			open = false
		}
	}

	if open {
		return nil, types.NewEntryError(kind, "", "unbalanced parentheses in %q", buf.String())
	}
	return codes, nil
}

// closingParen returns the index of the parenthesis closing the one at
// s[open], or -1
func closingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseAuthors returns the family names of an AUTHOR field
func parseAuthors(lines []line) ([]string, error) {
	var text strings.Builder
	for _, l := range lines {
		text.WriteString(strings.TrimSpace(l.text))
	}
	s := text.String()

	if !strings.HasPrefix(s, "(") {
		return nil, authorError("author list does not start with '(': %q", s)
	}
	end := closingParen(s, 0)
	if end < 0 {
		return nil, authorError("unbalanced author list %q", s)
	}

	var names []string
	for _, name := range strings.Split(s[1:end], ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, authorError("empty name in author list %q", s)
		}
		family := strings.TrimSpace(name[strings.LastIndex(name, ".")+1:])
		if family == "" {
			return nil, authorError("no family name in %q", name)
		}
		names = append(names, family)
	}
	return names, nil
}

// parseInstitutes returns the institute codes of an INSTITUTE field
func parseInstitutes(lines []line) ([]string, error) {
	codes, err := extractCodes(lines, types.InstituteParsingError)
	if err != nil {
		return nil, err
	}

	var institutes []string
	for _, c := range codes {
		for _, inst := range strings.Split(c.text[1:len(c.text)-1], ",") {
			if !isInstituteCode(inst) {
				return nil, types.NewEntryError(types.InstituteParsingError, "",
					"malformed institute code %q", inst)
			}
			institutes = append(institutes, inst)
		}
	}
	return institutes, nil
}

// isInstituteCode reports whether s looks like "1USAORL": an area digit, a
// three letter country and a three character institute
func isInstituteCode(s string) bool {
	if len(s) != 7 || s[0] < '0' || s[0] > '9' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// checkReferences validates the codes of a REFERENCE field. A simple code
// has a type and at least one more subfield; combined codes are
// parenthesised groups joined by "=" or ",".
func checkReferences(lines []line) error {
	codes, err := extractCodes(lines, types.ReferenceParsingError)
	if err != nil {
		return err
	}
	for _, c := range codes {
		if err := checkReference(c.text[1 : len(c.text)-1]); err != nil {
			return err
		}
	}
	return nil
}

func checkReference(s string) error {
	if !strings.HasPrefix(s, "(") {
		typ, rest, found := strings.Cut(s, ",")
		if !found || typ == "" || rest == "" {
			return types.NewEntryError(types.ReferenceParsingError, "", "malformed reference %q", s)
		}
		return nil
	}

	for i := 0; i < len(s); {
		if s[i] != '(' {
			return types.NewEntryError(types.ReferenceParsingError, "",
				"unexpected %q in reference %q", s[i], s)
		}
		end := closingParen(s, i)
		if end < 0 {
			return types.NewEntryError(types.ReferenceParsingError, "", "unbalanced reference %q", s)
		}
		if err := checkReference(s[i+1 : end]); err != nil {
			return err
		}
		i = end + 1
		if i < len(s) && (s[i] == '=' || s[i] == ',') {
			i++
		}
	}
	return nil
}

func authorError(format string, args ...any) error {
	return types.NewEntryError(types.AuthorParsingError, "", format, args...)
}
