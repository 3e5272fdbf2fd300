// Command probe inspects one raw yearly extract without running the full
// cleaning pipeline.
//
// It parses the file with the same reader the pipeline uses, checks the
// header against the table's column contract, and prints the pre-clean
// diagnostics: row/column counts, per-column missing values, duplicate
// keys, and out-of-range counts for the governed columns.
//
// This makes it convenient to vet a fresh download before a run:
//
//	probe -table usagers -file data/usagers-2023.csv
//
// Output is purely text on stdout, one finding per line, so it scripts
// cleanly.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"baac/internal/audit"
	"baac/internal/baac"
	"baac/internal/cleaner"
	parsercsv "baac/internal/parser/csv"
)

func main() {
	var (
		flagTable = flag.String("table", "", "table kind: caracteristiques|lieux|usagers|vehicules")
		flagFile  = flag.String("file", "", "path to the raw extract")
		flagSep   = flag.String("sep", ";", "field separator")
	)
	flag.Parse()

	if strings.TrimSpace(*flagFile) == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		flag.Usage()
		os.Exit(2)
	}

	table, keys, contract, err := tableInfo(*flagTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	sep := ';'
	if *flagSep != "" {
		sep = rune((*flagSep)[0])
	}

	malformed := 0
	f, err := parsercsv.ReadFile(*flagFile, parsercsv.Options{
		Comma:     sep,
		TrimSpace: true,
		OnErr: func(line int, err error) {
			malformed++
		},
	})
	if err != nil {
		log.Fatalf("read %s: %v", *flagFile, err)
	}

	fmt.Printf("table=%s file=%s rows=%d cols=%d malformed_lines=%d\n",
		table, *flagFile, f.NumRows(), len(f.Cols), malformed)

	extras, err := contract.ValidateHeader(f.Cols)
	if err != nil {
		fmt.Printf("contract: %v\n", err)
	} else if len(extras) > 0 {
		fmt.Printf("contract: extra columns %v (ignored by cleaning)\n", extras)
	} else {
		fmt.Println("contract: ok")
	}

	s := audit.Describe(table, "raw", f, keys, cleaner.Ranges(table))
	fmt.Printf("duplicate_keys=%d\n", s.DuplicateKeys)
	if table == "caracteristiques" {
		fmt.Printf("malformed_hrmn=%d\n", s.MalformedHrmn)
	}
	for _, col := range sortedKeys(s.CommaDecimals) {
		fmt.Printf("col=%s comma_decimals=%d\n", col, s.CommaDecimals[col])
	}
	for _, col := range sortedKeys(s.MissingByCol) {
		fmt.Printf("col=%s missing=%d\n", col, s.MissingByCol[col])
	}
	for _, col := range sortedKeys(s.OutOfRange) {
		fmt.Printf("col=%s out_of_range=%d\n", col, s.OutOfRange[col])
	}
}

func tableInfo(name string) (table string, keys []string, c baac.Contract, err error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "caracteristiques", "caract":
		return "caracteristiques", []string{"Num_Acc"}, baac.AccidentContract, nil
	case "lieux":
		return "lieux", []string{"Num_Acc"}, baac.LocationContract, nil
	case "usagers":
		return "usagers", []string{"Num_Acc", "id_usager"}, baac.UserContract, nil
	case "vehicules":
		return "vehicules", []string{"Num_Acc", "id_vehicule"}, baac.VehicleContract, nil
	default:
		return "", nil, baac.Contract{}, fmt.Errorf("unknown table %q", name)
	}
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
