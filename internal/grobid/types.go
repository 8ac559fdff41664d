// Package grobid provides the structural reference extractor backed by a
// GROBID server.
//
// GROBID parses the bibliography section of a PDF into TEI XML. This package
// submits document bytes to the processReferences endpoint and maps the
// returned biblStruct entries to raw references.
//
// Service documentation: https://grobid.readthedocs.io/
package grobid

import "encoding/xml"

// TEI is the top-level TEI document returned by processReferences.
type TEI struct {
	XMLName xml.Name     `xml:"TEI"`
	Entries []BiblStruct `xml:"text>back>div>listBibl>biblStruct"`
}

// BiblStruct is one parsed bibliography entry.
type BiblStruct struct {
	Analytic *Analytic `xml:"analytic"`
	Monogr   *Monogr   `xml:"monogr"`
	Notes    []Note    `xml:"note"`
}

// Analytic describes the article-level part of an entry (paper title,
// authors, identifiers).
type Analytic struct {
	Titles  []Title  `xml:"title"`
	Authors []Author `xml:"author"`
	IDs     []Idno   `xml:"idno"`
}

// Monogr describes the container-level part of an entry (journal or
// proceedings title, imprint). Entries without an analytic part carry the
// work's own title and authors here.
type Monogr struct {
	Titles  []Title  `xml:"title"`
	Authors []Author `xml:"author"`
	IDs     []Idno   `xml:"idno"`
	Imprint *Imprint `xml:"imprint"`
}

// Title is a title element with its TEI level attribute
// ("a" article, "j" journal, "m" monograph).
type Title struct {
	Level string `xml:"level,attr"`
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// Author is one author of the entry.
type Author struct {
	PersName *PersName `xml:"persName"`
}

// PersName holds the structured parts of a person name.
type PersName struct {
	Forenames []Forename `xml:"forename"`
	Surname   string     `xml:"surname"`
}

// Forename is one forename part with its type attribute ("first", "middle").
type Forename struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// Idno is an identifier element, e.g. type="DOI".
type Idno struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// Imprint holds publication info for the container.
type Imprint struct {
	Dates []Date `xml:"date"`
}

// Date is a publication date; When is a machine-readable form like
// "2019" or "2019-05-01".
type Date struct {
	Type string `xml:"type,attr"`
	When string `xml:"when,attr"`
}

// Note is an annotation on the entry. With includeRawCitations enabled the
// original citation string arrives as a note with type "raw_reference".
type Note struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}
