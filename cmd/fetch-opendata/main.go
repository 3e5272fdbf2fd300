// Command fetch-opendata locates the yearly BAAC extracts on the
// data.gouv.fr dataset page and optionally downloads them.
//
// The dataset page lists one CSV resource per table and year
// (caracteristiques, lieux, usagers, vehicules). This command scrapes the
// resource links, filters them to the requested year, and either prints
// them (default) or downloads each into -out under the names the pipeline
// expects: caract-<year>.csv, lieux-<year>.csv, usagers-<year>.csv,
// vehicules-<year>.csv.
//
//	fetch-opendata -year 2023 -download -out data
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultDatasetURL = "https://www.data.gouv.fr/fr/datasets/bases-de-donnees-annuelles-des-accidents-corporels-de-la-circulation-routiere-annees-de-2005-a-2023/"

// tableStems maps the substrings that identify a resource link to the
// local file stem the pipeline expects.
var tableStems = map[string]string{
	"caract":    "caract",
	"lieux":     "lieux",
	"usagers":   "usagers",
	"vehicules": "vehicules",
}

func main() {
	var (
		flagURL      = flag.String("url", defaultDatasetURL, "dataset page URL")
		flagYear     = flag.Int("year", 2023, "report year to select")
		flagDownload = flag.Bool("download", false, "download the files instead of printing their URLs")
		flagOut      = flag.String("out", "data", "download directory")
	)
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}

	links, err := resourceLinks(client, *flagURL, *flagYear)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(links) == 0 {
		log.Fatalf("no resource links for year %d on %s", *flagYear, *flagURL)
	}

	if !*flagDownload {
		for stem, u := range links {
			fmt.Printf("%s\t%s\n", stem, u)
		}
		return
	}

	if err := os.MkdirAll(*flagOut, 0o755); err != nil {
		log.Fatalf("mkdir %s: %v", *flagOut, err)
	}
	for stem, u := range links {
		dst := filepath.Join(*flagOut, fmt.Sprintf("%s-%d.csv", stem, *flagYear))
		if err := download(client, u, dst); err != nil {
			log.Fatalf("download %s: %v", u, err)
		}
		log.Printf("stage=fetch table=%s file=%s", stem, dst)
	}
}

// resourceLinks scrapes the dataset page and returns one download URL per
// table stem for the requested year. Link text and href are both checked:
// the page's markup has shifted between snapshots, so matching is kept
// loose (substring on the stem, exact on the year).
func resourceLinks(client *http.Client, pageURL string, year int) (map[string]string, error) {
	resp, err := client.Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch dataset page: status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse dataset page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	ys := strconv.Itoa(year)

	links := make(map[string]string, len(tableStems))
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		hay := strings.ToLower(href) + " " + text
		if !strings.Contains(hay, ys) {
			return
		}
		for marker, stem := range tableStems {
			if !strings.Contains(hay, marker) {
				continue
			}
			if _, seen := links[stem]; seen {
				continue
			}
			u, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				continue
			}
			abs := base.ResolveReference(u)
			if abs.Scheme != "http" && abs.Scheme != "https" {
				continue
			}
			links[stem] = abs.String()
		}
	})
	return links, nil
}

// download streams one resource to dst via a temp file so an interrupted
// transfer never leaves a half-written extract behind.
func download(client *http.Client, srcURL, dst string) error {
	resp, err := client.Get(srcURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".fetch-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
