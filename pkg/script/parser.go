package script

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer tokenizes scripts. Register names may contain '/', '.', '-' and
// '_' so that CTRL/STAT and friends stay one token.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `(#|//)[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "Int", Pattern: `0[xX][0-9a-fA-F_]+|0[bB][01_]+|[0-9][0-9_]*`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_/.\-]*`},
	{Name: "Punct", Pattern: `;`},
})

// Parser builds Scripts from text.
type Parser struct {
	parser *participle.Parser[Script]
}

// NewParser returns a parser.
func NewParser() (*Parser, error) {
	p, err := participle.Build[Script](
		participle.Lexer(Lexer),
		participle.Elide("Comment", "Whitespace"),
		participle.CaseInsensitive("Ident"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}
	return &Parser{parser: p}, nil
}

// Parse reads a script from r.
func (p *Parser) Parse(r io.Reader) (*Script, error) {
	s, err := p.parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return s, nil
}

// ParseString parses a script held in a string.
func (p *Parser) ParseString(input string) (*Script, error) {
	s, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return s, nil
}

// ParseFile parses the script at path.
func (p *Parser) ParseFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return p.Parse(f)
}
