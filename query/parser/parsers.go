// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

import (
	"strconv"
	"strings"

	"github.com/vektah/goparsify"
)

// repeatZeroOrMore matches zero or more parsers and returns the values as
// .Child[n]. An optional separator is consumed but not returned.
func repeatZeroOrMore(p goparsify.Parserish, sep ...goparsify.Parserish) goparsify.Parser {
	return goparsify.Some(p, sep...)
}

// repeatOneOrMore matches one or more parsers and returns the values as
// .Child[n]. An optional separator is consumed but not returned.
func repeatOneOrMore(p goparsify.Parserish, sep ...goparsify.Parserish) goparsify.Parser {
	return goparsify.Many(p, sep...)
}

// withWhitespace sets Auto Whitespace to 'ws' for parser and all its
// children. The previous setting is restored once 'parser' returns.
func withWhitespace(ws goparsify.VoidParser, parserish goparsify.Parserish) goparsify.Parser {
	parser := goparsify.Parsify(parserish)
	return func(ps *goparsify.State, node *goparsify.Result) {
		oldWS := ps.WS
		ps.WS = ws
		parser(ps, node)
		ps.WS = oldWS
	}
}

// sparqlWS is a goparsify Whitespace parser for SPARQL. Whitespace chars are
// ' ' \t \r \n only. '#' starts a comment which runs to the end of the line.
func sparqlWS(s *goparsify.State) {
	for s.Pos < len(s.Input) {
		switch s.Input[s.Pos] {
		case ' ', '\t', '\r', '\n':
			s.Pos++
		case '#':
			s.Pos++
			for s.Pos < len(s.Input) {
				c := s.Input[s.Pos]
				s.Pos++
				if c == '\n' || c == '\r' {
					break
				}
			}
		default:
			return
		}
	}
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isNameChar returns true for the characters allowed in variable names and
// blank node labels.
func isNameChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}

// isLocalChar returns true for the characters allowed in the local part of a
// prefixed name.
func isLocalChar(c byte) bool {
	return isNameChar(c) || c == '-' || c == '.' || c == '%'
}

// keyword returns a parser that matches the supplied word ignoring case. The
// word must not be immediately followed by another name character, so that
// "a" doesn't match the start of "abc", and "optional" doesn't match the start
// of "optional:x".
func keyword(match string) goparsify.Parser {
	lenMatch := len(match)
	return goparsify.NewParser("i/"+match+"/", func(s *goparsify.State, r *goparsify.Result) {
		s.WS(s)
		in := s.Get()
		if len(in) < lenMatch || !strings.EqualFold(match, in[:lenMatch]) {
			s.ErrorHere(match)
			return
		}
		if len(in) > lenMatch && (isLocalChar(in[lenMatch]) || in[lenMatch] == ':') {
			s.ErrorHere(match)
			return
		}
		s.Advance(lenMatch)
		r.Token = in[:lenMatch]
	})
}

// uint64Literal parses a uint64 in base 10.
func uint64Literal() goparsify.Parser {
	return goparsify.NewParser("uint64Literal", func(s *goparsify.State, r *goparsify.Result) {
		s.WS(s)
		end := s.Pos
		for end < len(s.Input) && isDigit(s.Input[end]) {
			end++
		}
		if end == s.Pos {
			s.ErrorHere("number")
			return
		}
		v, err := strconv.ParseUint(s.Input[s.Pos:end], 10, 64)
		if err != nil {
			s.ErrorHere("number")
			return
		}
		r.Token = s.Input[s.Pos:end]
		r.Result = v
		s.Pos = end
	})
}

// iriRefParser parses an IRI reference such as <http://example.com/a>. IRIs
// may contain any character other than whitespace and angle brackets. In
// particular, object paths containing double quotes are allowed.
func iriRefParser() goparsify.Parser {
	return goparsify.NewParser("IRI", func(s *goparsify.State, r *goparsify.Result) {
		s.WS(s)
		in := s.Get()
		if len(in) == 0 || in[0] != '<' {
			s.ErrorHere("IRI")
			return
		}
		end := strings.IndexAny(in[1:], "<> \t\r\n")
		if end < 0 || in[1+end] != '>' {
			s.ErrorHere("IRI terminated by '>'")
			return
		}
		r.Token = in[1 : 1+end]
		r.Result = &IRI{Value: r.Token}
		s.Advance(end + 2)
	})
}

// prefixedNameParser parses a prefixed name such as wmi:Win32_Process. The
// prefix may be empty. If nsOnly is set, only the prefix and colon are parsed,
// as in a PREFIX declaration.
func prefixedNameParser(nsOnly bool) goparsify.Parser {
	return goparsify.NewParser("prefixed name", func(s *goparsify.State, r *goparsify.Result) {
		s.WS(s)
		in := s.Get()
		i := 0
		if i < len(in) && isLetter(in[i]) {
			i++
			for i < len(in) && (isNameChar(in[i]) || in[i] == '-') {
				i++
			}
		}
		if i >= len(in) || in[i] != ':' {
			s.ErrorHere("prefixed name")
			return
		}
		name := &qname{prefix: in[:i], offset: s.Pos}
		i++
		if !nsOnly {
			start := i
			for i < len(in) && isLocalChar(in[i]) {
				i++
			}
			// A trailing '.' ends the triple rather than the name.
			for i > start && in[i-1] == '.' {
				i--
			}
			name.local = in[start:i]
		}
		r.Token = in[:i]
		r.Result = name
		s.Advance(i)
	})
}

// prefixedChars consumes a sigil followed by one or more name characters,
// returning the characters after the sigil. Used for variables and blank
// nodes.
func prefixedChars(description string, sigils ...string) goparsify.Parser {
	return goparsify.NewParser(description, func(s *goparsify.State, r *goparsify.Result) {
		s.WS(s)
		in := s.Get()
		for _, sigil := range sigils {
			if !strings.HasPrefix(in, sigil) {
				continue
			}
			i := len(sigil)
			for i < len(in) && isNameChar(in[i]) {
				i++
			}
			if i == len(sigil) {
				break
			}
			r.Token = in[len(sigil):i]
			s.Advance(i)
			return
		}
		s.ErrorHere(description)
	})
}

// rdfTypeKeyword parses the 'a' shorthand for rdf:type.
func rdfTypeKeyword() goparsify.Parser {
	return keyword("a").Map(func(n *goparsify.Result) {
		n.Result = &IRI{Value: RDFType}
	})
}

// pathModifier consumes a '*' or '+' directly following a predicate. It
// never fails; Token is empty when there is no modifier.
func pathModifier() goparsify.Parser {
	return goparsify.NewParser("path modifier", func(s *goparsify.State, r *goparsify.Result) {
		in := s.Get()
		if len(in) > 0 && (in[0] == '*' || in[0] == '+') {
			r.Token = in[:1]
			s.Advance(1)
		}
	})
}

// langTagParser parses a language tag such as @en or @en-US directly
// following a string literal.
func langTagParser() goparsify.Parser {
	return goparsify.NewParser("language tag", func(s *goparsify.State, r *goparsify.Result) {
		in := s.Get()
		if len(in) < 2 || in[0] != '@' || !isLetter(in[1]) {
			s.ErrorHere("language tag")
			return
		}
		i := 2
		for i < len(in) && (isLetter(in[i]) || isDigit(in[i]) || in[i] == '-') {
			i++
		}
		r.Token = in[1:i]
		r.Result = langTag(r.Token)
		s.Advance(i)
	})
}

// filterConstraint parses the constraint of a FILTER: either a bracketted
// expression or a function call such as regex(?n, "^svc"). The expression
// itself isn't interpreted; its text is kept.
func filterConstraint() goparsify.Parser {
	return goparsify.NewParser("filter expression", func(s *goparsify.State, r *goparsify.Result) {
		s.WS(s)
		in := s.Get()
		i := 0
		for i < len(in) && (isLocalChar(in[i]) || in[i] == ':') {
			i++
		}
		if i >= len(in) || in[i] != '(' {
			s.ErrorHere("filter expression")
			return
		}
		depth := 0
		var quote byte
		for ; i < len(in); i++ {
			c := in[i]
			switch {
			case quote != 0:
				if c == '\\' {
					i++
				} else if c == quote {
					quote = 0
				}
			case c == '"' || c == '\'':
				quote = c
			case c == '(':
				depth++
			case c == ')':
				depth--
				if depth == 0 {
					r.Token = in[:i+1]
					r.Result = &Filter{Text: r.Token}
					s.Advance(i + 1)
					return
				}
			}
		}
		s.ErrorHere("')' to end the filter expression")
	})
}
