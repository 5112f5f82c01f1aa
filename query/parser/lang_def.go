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
	p "github.com/vektah/goparsify"
)

// queryRoot is the parser used by Parse. It extracts a SELECT query in its
// entirety.
var queryRoot p.Parser

func init() {
	// group is referenced recursively by OPTIONAL, UNION, and SERVICE blocks.
	var group p.Parser
	groupRef := p.Parser(func(s *p.State, r *p.Result) {
		group(s, r)
	})

	iri := iriRefParser()
	pname := prefixedNameParser(false)
	iriOrName := p.Any(iri, pname)
	variable := prefixedChars("variable", "?", "$").Map(func(n *p.Result) { // ?s
		n.Result = &Variable{Name: n.Token}
	})
	blank := prefixedChars("blank node", "_:").Map(func(n *p.Result) { // _:b1
		n.Result = &BlankNode{Label: n.Token}
	})

	// ^^xsd:integer
	datatype := p.Seq("^^", iriOrName).Map(child(1))
	// "svchost.exe" || "svchost"@en || "4"^^xsd:integer
	literalString := p.Seq(p.StringLit(`"'`), p.Maybe(p.Any(langTagParser(), datatype))).Map(literalString)
	// 4 || 2.5
	literalNumber := p.NumberLit().Map(literalNumber)
	// true || false
	literalBool := p.Any(keyword("true"), keyword("false")).Map(literalBool)

	subject := p.Any(variable, iri, blank, pname)
	verb := p.Seq(p.Any(variable, iri, pname, rdfTypeKeyword()), pathModifier()).Map(verb)
	object := p.Any(variable, iri, blank, literalString, literalNumber, pname, literalBool)
	predicateObjects := p.Seq(verb, repeatOneOrMore(object, ",")).Map(predicateObjects)
	propertyList := p.Seq(repeatOneOrMore(predicateObjects, ";"), p.Maybe(";"))
	triples := p.Seq(subject, propertyList).Map(triplesSameSubject)

	optional := p.Seq(keyword("OPTIONAL"), groupRef).Map(optionalBlock)
	service := p.Seq(keyword("SERVICE"), p.Maybe(keyword("SILENT")), iriOrName, groupRef).Map(serviceBlock)
	filter := p.Seq(keyword("FILTER"), filterConstraint()).Map(child(1))
	unionOrGroup := repeatOneOrMore(groupRef, keyword("UNION")).Map(unionOrGroup)

	element := p.Seq(p.Any(optional, service, filter, unionOrGroup, triples), p.Maybe(".")).Map(child(0))
	group = p.Seq("{", repeatZeroOrMore(element), "}").Map(groupPattern)

	// SolutionModifiers
	limit := p.Seq(keyword("LIMIT"), uint64Literal()).Map(child(1))
	offset := p.Seq(keyword("OFFSET"), uint64Literal()).Map(child(1))
	limitOffset := p.Any(
		p.Seq(limit, p.Maybe(offset)).Map(limitOffset),
		p.Seq(offset, p.Maybe(limit)).Map(offsetLimit))

	prefixDecl := p.Seq(keyword("PREFIX"), prefixedNameParser(true), iri).Map(prefixDecl)
	distinct := p.Maybe(p.Any(keyword("DISTINCT"), keyword("REDUCED")))
	selectVars := p.Any("*", repeatOneOrMore(variable))
	selectQuery := p.Seq(repeatZeroOrMore(prefixDecl), keyword("SELECT"), distinct, selectVars,
		p.Maybe(keyword("WHERE")), groupRef, p.Maybe(limitOffset)).Map(selectQuery)

	queryRoot = withWhitespace(sparqlWS, selectQuery)
}
