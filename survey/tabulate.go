package survey

import (
	"fmt"
	"strings"
)

// DomainPolicy decides what happens to a MULTIPLE answer outside its domain.
type DomainPolicy int

const (
	// AcceptOutOfDomain tabulates the value under its own column and warns
	AcceptOutOfDomain DomainPolicy = iota
	// RejectOutOfDomain aborts the run
	RejectOutOfDomain
)

// ParseDomainPolicy accepts "accept" or "reject" (case-insensitive); empty
// means accept.
func ParseDomainPolicy(s string) (DomainPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "accept":
		return AcceptOutOfDomain, nil
	case "reject":
		return RejectOutOfDomain, nil
	default:
		return AcceptOutOfDomain, fmt.Errorf("unknown out-of-domain policy %q (use: accept, reject)", s)
	}
}

func (p DomainPolicy) String() string {
	if p == RejectOutOfDomain {
		return "reject"
	}
	return "accept"
}

// Options tunes a tabulation
type Options struct {
	OutOfDomain DomainPolicy
}

// Tabulation is the output of one run of the tabulation pipeline.
type Tabulation struct {
	Table    *Table
	Warnings []Warning
}

// Tabulate converts long-format answers into the final relabeled table:
// discriminate, pivot, complete the schema, then relabel. It is a pure
// function of its inputs and keeps no state between calls.
func Tabulate(answers []AnswerRecord, catalog *Catalog, opts Options) (*Tabulation, error) {
	keyed := Discriminate(answers, catalog.MultipleSet())

	warnings, err := CheckDomains(keyed, catalog, opts.OutOfDomain)
	if err != nil {
		return nil, err
	}

	table, dups := Pivot(keyed)
	warnings = append(warnings, dups...)

	Complete(table, catalog)

	final, err := Relabel(table, catalog)
	if err != nil {
		return nil, err
	}

	return &Tabulation{Table: final, Warnings: warnings}, nil
}
