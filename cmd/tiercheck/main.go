// Command tiercheck validates a tier file, prints each prize's odds and compares them
// against a seeded simulation of the weighted draw.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	raffle "github.com/Ashenafi-pixel/raffle-wheel"
	"github.com/Ashenafi-pixel/raffle-wheel/config"
	"github.com/Ashenafi-pixel/raffle-wheel/round"
	"github.com/Ashenafi-pixel/raffle-wheel/wheel"
)

func main() {
	tiersPath := flag.String("tiers", "", "Path to a tier YAML file (built-in tiers when empty)")
	draws := flag.Int("draws", 100000, "Simulated spins per tier")
	seed := flag.Uint64("seed", 1, "Seed for the simulation")
	migrate := flag.Bool("migrate", false, "Create the raffle_wins table in DATABASE_URL and exit")
	flag.Parse()

	if *migrate {
		_ = godotenv.Load(".env")
		if err := migrateDB(); err != nil {
			fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("raffle_wins ready")
		return
	}

	if *draws < 1 {
		fmt.Fprintln(os.Stderr, "-draws must be at least 1")
		os.Exit(1)
	}
	if err := run(os.Stdout, *tiersPath, *draws, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "tiercheck: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, path string, draws int, seed uint64) error {
	catalog := wheel.DefaultCatalog()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if catalog, err = wheel.ParseCatalog(data); err != nil {
			return err
		}
	}
	for _, t := range catalog.List() {
		rep, err := simulate(t, draws, wheel.NewSeededSource(seed))
		if err != nil {
			return fmt.Errorf("tier %s: %w", t.ID, err)
		}
		rep.print(w)
	}
	return nil
}

type report struct {
	tier     wheel.Tier
	draws    int
	counts   []int
	expected []float64
	chi2     float64
}

// simulate spins tier draws times and tallies the winners.
func simulate(t wheel.Tier, draws int, src wheel.Source) (report, error) {
	if err := t.Validate(); err != nil {
		return report{}, err
	}
	rep := report{
		tier:     t,
		draws:    draws,
		counts:   make([]int, len(t.Prizes)),
		expected: t.Probability(),
	}
	for i := 0; i < draws; i++ {
		idx, _, err := t.Pick(src)
		if err != nil {
			return report{}, err
		}
		rep.counts[idx]++
	}
	for i, p := range rep.expected {
		want := p * float64(draws)
		d := float64(rep.counts[i]) - want
		rep.chi2 += d * d / want
	}
	return rep, nil
}

func (r report) print(w io.Writer) {
	fmt.Fprintf(w, "%s (%s) %d prizes, %d draws, chi2=%.2f df=%d\n",
		r.tier.ID, r.tier.Label, len(r.tier.Prizes), r.draws, r.chi2, len(r.tier.Prizes)-1)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  #\tprize\tweight\todds\tobserved\t")
	for i, p := range r.tier.Prizes {
		name := p.Name
		if p.Miss {
			name += " (miss)"
		}
		fmt.Fprintf(tw, "  %d\t%s\t%g\t%.4f\t%.4f\t\n",
			i, name, p.Weight, r.expected[i], float64(r.counts[i])/float64(r.draws))
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func migrateDB() error {
	db, err := raffle.GetDB(config.Load().DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if db == nil {
		return fmt.Errorf("DATABASE_URL is not set; cannot connect to DB")
	}
	return round.NewPGStore(db).EnsureSchema(context.Background())
}
