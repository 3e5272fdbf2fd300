package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"baac/internal/storage"
)

type testLogger struct {
	lines []string
}

func (l *testLogger) Printf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *testLogger) contains(sub string) bool {
	for _, line := range l.lines {
		if strings.Contains(line, sub) {
			return true
		}
	}
	return false
}

// fakeRepo captures the publish step.
type fakeRepo struct {
	table string
	cols  []storage.Column
	rows  [][]any
}

func (f *fakeRepo) Close() {}

func (f *fakeRepo) Replace(ctx context.Context, table string, cols []storage.Column, rows [][]any) (int64, error) {
	f.table = table
	f.cols = cols
	f.rows = rows
	return int64(len(rows)), nil
}

func writeInput(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// seedInputs writes a small but complete four-file fixture for 2023:
// two accidents, their locations, two vehicles, three users (two in the
// same vehicle).
func seedInputs(t *testing.T, dir string) {
	t.Helper()

	writeInput(t, dir, "caract-2023.csv",
		"Num_Acc;jour;mois;an;hrmn;lum;dep;com;agg;int;atm;col;adr;lat;long\n"+
			"201;15;6;2023;7:15;1;75;75101;2;1;1;3;rue A;48,85;2,35\n"+
			"202;16;6;2023;23:30;5;01;01001;1;1;1;6;;46,20;5,22\n")

	writeInput(t, dir, "lieux-2023.csv",
		"Num_Acc;catr;voie;v1;v2;circ;nbv;vosp;prof;pr;pr1;plan;lartpc;larrout;surf;infra;situ;vma\n"+
			"201;4;;;;2;2;0;1;;;1;;;1;0;1;50\n"+
			"202;3;;;;2;2;0;1;;;1;;;1;0;1;80\n")

	writeInput(t, dir, "usagers-2023.csv",
		"Num_Acc;id_usager;id_vehicule;num_veh;place;catu;grav;sexe;an_nais;trajet;secu1;secu2;secu3;locp;actp;etatp\n"+
			"201;11;V 1;A01;1;1;2;1;2000;5;1;;;1;1;1\n"+
			"201;12;V 1;A01;2;2;99;2;1985;5;1;;;1;1;1\n"+
			"202;13;V 2;A01;1;1;3;2;1960;5;1;;;1;1;1\n")

	writeInput(t, dir, "vehicules-2023.csv",
		"Num_Acc;id_vehicule;num_veh;senc;catv;obs;obsm;choc;manv;motor;occutc\n"+
			"201;V 1;A01;1;7;0;0;1;1;1;\n"+
			"202;V 2;A01;2;33;0;0;3;1;1;\n")
}

func readArtifact(t *testing.T, path string) ([]string, [][]string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if len(recs) == 0 {
		t.Fatalf("%s is empty", path)
	}
	return recs[0], recs[1:]
}

func colValue(t *testing.T, header []string, row []string, name string) string {
	t.Helper()
	for i, c := range header {
		if c == name {
			return row[i]
		}
	}
	t.Fatalf("column %s not in header %v", name, header)
	return ""
}

func TestRun_EndToEnd(t *testing.T) {
	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")
	seedInputs(t, inDir)

	logf := &testLogger{}
	repo := &fakeRepo{}
	runner := &Runner{
		Logger: logf,
		NewRepository: func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
			return repo, nil
		},
	}

	err := runner.Run(context.Background(), Config{
		InputDir: inDir,
		OutDir:   outDir,
		Year:     2023,
		Storage:  storage.Config{Kind: "sqlite", DSN: "unused"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, name := range []string{
		"caract_2023_clean.csv",
		"lieux_2023_clean.csv",
		"usagers_2023_clean.csv",
		"vehicules_2023_clean.csv",
		"final_2023.csv",
	} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("artifact %s missing: %v", name, err)
		}
	}

	// Cleaned usagers: pruned columns gone, derivations present, sentinel
	// grav nulled.
	header, rows := readArtifact(t, filepath.Join(outDir, "usagers_2023_clean.csv"))
	for _, dropped := range []string{"num_veh", "trajet", "secu1", "locp", "actp", "etatp"} {
		for _, c := range header {
			if c == dropped {
				t.Fatalf("pruned column %s still in cleaned usagers header %v", dropped, header)
			}
		}
	}
	if len(rows) != 3 {
		t.Fatalf("cleaned usagers rows=%d, want 3", len(rows))
	}
	if got := colValue(t, header, rows[0], "grav_3_niveaux"); got != "Tué" {
		t.Fatalf("grav_3_niveaux=%q, want Tué", got)
	}
	if got := colValue(t, header, rows[0], "tranche_age"); got != "18–24" {
		t.Fatalf("tranche_age=%q, want 18–24", got)
	}
	if got := colValue(t, header, rows[1], "grav"); got != "" {
		t.Fatalf("sentinel grav=%q, want empty", got)
	}
	if got := colValue(t, header, rows[0], "id_vehicule"); got != "V1" {
		t.Fatalf("id_vehicule=%q, want whitespace-stripped V1", got)
	}

	// Cleaned lieux carry the borrowed built-up flag and the zone label.
	header, rows = readArtifact(t, filepath.Join(outDir, "lieux_2023_clean.csv"))
	if got := colValue(t, header, rows[0], "zone_detaillee"); got != "Zone urbaine dense" {
		t.Fatalf("zone=%q, want Zone urbaine dense", got)
	}
	if got := colValue(t, header, rows[1], "zone_detaillee"); got != "Zone rurale" {
		t.Fatalf("zone=%q, want Zone rurale", got)
	}

	// Final merge: one row per user, every accident represented.
	header, rows = readArtifact(t, filepath.Join(outDir, "final_2023.csv"))
	if len(rows) != 3 {
		t.Fatalf("final rows=%d, want 3 (users drive the grain)", len(rows))
	}
	if got := colValue(t, header, rows[0], "periode"); got != "Matin" {
		t.Fatalf("periode=%q, want Matin", got)
	}
	if got := colValue(t, header, rows[0], "catv"); got != "7" {
		t.Fatalf("catv=%q, want 7", got)
	}
	if got := colValue(t, header, rows[0], "agg_lieux"); got != "2" {
		t.Fatalf("agg_lieux=%q, want borrowed flag 2", got)
	}

	// Publish step hit the repository with the merged table.
	if repo.table != "accidents_2023" {
		t.Fatalf("published table=%q, want accidents_2023", repo.table)
	}
	if len(repo.rows) != 3 {
		t.Fatalf("published rows=%d, want 3", len(repo.rows))
	}

	// Stage logging is the run's audit trail.
	for _, want := range []string{"stage=clean", "stage=join", "stage=export", "stage=publish"} {
		if !logf.contains(want) {
			t.Fatalf("log missing %q; lines=%v", want, logf.lines)
		}
	}
	if !logf.contains("unmatched=0") {
		t.Fatal("log missing join unmatched count")
	}
}

func TestRun_MissingRequiredColumnFails(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	seedInputs(t, inDir)

	// Rewrite caract without the governed lum column.
	writeInput(t, inDir, "caract-2023.csv",
		"Num_Acc;jour;mois;an;hrmn;dep;com;agg;int;atm;col;adr;lat;long\n"+
			"201;15;6;2023;7:15;75;75101;2;1;1;3;rue A;48,85;2,35\n")

	runner := &Runner{Logger: &testLogger{}}
	err := runner.Run(context.Background(), Config{InputDir: inDir, OutDir: outDir, Year: 2023})
	if err == nil {
		t.Fatal("Run with missing lum: err=nil, want schema error")
	}
	if !strings.Contains(err.Error(), "lum") {
		t.Fatalf("err=%q, want mention of lum", err)
	}

	if _, statErr := os.Stat(filepath.Join(outDir, "final_2023.csv")); !os.IsNotExist(statErr) {
		t.Fatalf("final artifact written despite failed run: %v", statErr)
	}
}

func TestRun_MissingInputFileFails(t *testing.T) {
	runner := &Runner{Logger: &testLogger{}}
	err := runner.Run(context.Background(), Config{
		InputDir: t.TempDir(),
		OutDir:   t.TempDir(),
		Year:     2023,
	})
	if err == nil {
		t.Fatal("Run without inputs: err=nil, want open error")
	}
}

func TestRun_SkipsPublishWithoutStorageKind(t *testing.T) {
	inDir := t.TempDir()
	seedInputs(t, inDir)

	called := false
	runner := &Runner{
		Logger: &testLogger{},
		NewRepository: func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
			called = true
			return nil, nil
		},
	}

	err := runner.Run(context.Background(), Config{
		InputDir: inDir,
		OutDir:   t.TempDir(),
		Year:     2023,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if called {
		t.Fatal("repository factory called although no storage kind was configured")
	}
}
