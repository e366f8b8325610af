package formula

// Binding powers, lowest first
const (
	bpNone    = 0
	bpOr      = 1
	bpAnd     = 2
	bpEqual   = 3
	bpCompare = 4
	bpSum     = 5
	bpProduct = 6
	bpPrefix  = 7
	bpPower   = 8
	bpPostfix = 9
)

// maxNesting bounds parser recursion on pathological input
const maxNesting = 256

type parser struct {
	tokens []token
	pos    int
	depth  int
}

// Parse parses an expression into its syntax tree
func Parse(src string) (Node, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.expression(bpNone)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &SyntaxError{Pos: tok.pos, Msg: "unexpected " + tok.describe()}
	}
	return node, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, &SyntaxError{Pos: tok.pos, Msg: "expected " + what + ", got " + tok.describe()}
	}
	return tok, nil
}

func (p *parser) expression(rbp int) (Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxNesting {
		return nil, &SyntaxError{Pos: p.peek().pos, Msg: "expression nested too deeply"}
	}

	left, err := p.prefix()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		lbp := infixPower(tok)
		if lbp <= rbp {
			return left, nil
		}
		p.next()
		left, err = p.infix(left, tok, lbp)
		if err != nil {
			return nil, err
		}
	}
}

func (p *parser) prefix() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return &NumberLit{At: tok.pos, Value: tok.num}, nil

	case tokString:
		return &StringLit{At: tok.pos, Value: tok.text}, nil

	case tokIdent:
		switch tok.text {
		case "true":
			return &BoolLit{At: tok.pos, Value: true}, nil
		case "false":
			return &BoolLit{At: tok.pos, Value: false}, nil
		}
		return &Ident{At: tok.pos, Name: tok.text}, nil

	case tokLParen:
		inner, err := p.expression(bpNone)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil

	case tokOp:
		switch tok.text {
		case "-", "+", "!":
			operand, err := p.expression(bpPrefix)
			if err != nil {
				return nil, err
			}
			return &Unary{At: tok.pos, Op: tok.text, Operand: operand}, nil
		}
	}
	return nil, &SyntaxError{Pos: tok.pos, Msg: "unexpected " + tok.describe()}
}

func (p *parser) infix(left Node, tok token, lbp int) (Node, error) {
	switch tok.kind {
	case tokLParen:
		return p.call(left, tok)

	case tokDot:
		name, err := p.expect(tokIdent, "member name")
		if err != nil {
			return nil, err
		}
		return &Member{At: tok.pos, Object: left, Name: name.text}, nil
	}

	// ^ is right associative
	rbp := lbp
	if tok.text == "^" {
		rbp = lbp - 1
	}
	right, err := p.expression(rbp)
	if err != nil {
		return nil, err
	}
	op := tok.text
	if op == "=" {
		op = "=="
	}
	return &Binary{At: tok.pos, Op: op, Left: left, Right: right}, nil
}

func (p *parser) call(callee Node, open token) (Node, error) {
	node := &Call{At: open.pos, Callee: callee}
	if p.peek().kind == tokRParen {
		p.next()
		return node, nil
	}
	for {
		arg, err := p.expression(bpNone)
		if err != nil {
			return nil, err
		}
		node.Args = append(node.Args, arg)

		tok := p.next()
		switch tok.kind {
		case tokComma:
			continue
		case tokRParen:
			return node, nil
		default:
			return nil, &SyntaxError{Pos: tok.pos, Msg: "expected ',' or ')', got " + tok.describe()}
		}
	}
}

func infixPower(tok token) int {
	switch tok.kind {
	case tokLParen, tokDot:
		return bpPostfix
	case tokOp:
		switch tok.text {
		case "||":
			return bpOr
		case "&&":
			return bpAnd
		case "==", "!=", "=":
			return bpEqual
		case "<", "<=", ">", ">=":
			return bpCompare
		case "+", "-":
			return bpSum
		case "*", "/", "%":
			return bpProduct
		case "^":
			return bpPower
		}
	}
	return bpNone
}
