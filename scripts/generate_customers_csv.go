//go:build ignore
// +build ignore

// CSV Fixture Generator for Import Load Testing
// Generates a delimited customer file of arbitrary size for exercising the
// bulk importer, including the messy shapes the mapper must tolerate:
// duplicate customer ids, rows identified only by email, and
// blank-identifier rows. It writes no full-name-only rows.
//
// Usage:
//   go run scripts/generate_customers_csv.go \
//     --rows=2000000 \
//     --out=/tmp/customers-2m.csv \
//     --dirty-ratio=0.02
//
// Then point the importer at it:
//   curl -X POST localhost:8080/api/v1/customers/sync \
//     -d '{"filePath":"/tmp/customers-2m.csv"}'

package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"
)

var firstNames = []string{
	"Alice", "Bob", "Carla", "Diego", "Elena", "Farid", "Grace", "Hiro",
	"Ingrid", "Jamal", "Katya", "Luis", "Mei", "Noor", "Oscar", "Priya",
}

var lastNames = []string{
	"Anderson", "Bauer", "Chen", "Dubois", "Eriksen", "Fernandez", "Gupta",
	"Haddad", "Ivanova", "Jensen", "Kim", "Lopez", "Moreau", "Novak",
}

var companies = []string{
	"Acme Corp", "Globex", "Initech", "Umbrella Logistics", "Stark Industries",
	"Wayne Enterprises", "Hooli", "Vandelay Industries", "",
}

var cities = []string{
	"Austin", "Berlin", "Cairo", "Denver", "Edinburgh", "Fukuoka", "Geneva",
	"Hanoi", "Istanbul", "Jakarta", "",
}

var countries = []string{
	"United States", "Germany", "Egypt", "United Kingdom", "Japan",
	"Switzerland", "Vietnam", "Turkey", "Indonesia",
}

func main() {
	var (
		rows       int64
		out        string
		dirtyRatio float64
		seed       int64
	)
	flag.Int64Var(&rows, "rows", 1_000_000, "number of data rows to generate")
	flag.StringVar(&out, "out", "customers.csv", "output file path")
	flag.Float64Var(&dirtyRatio, "dirty-ratio", 0.02, "fraction of rows that are duplicates, email-only, or invalid")
	flag.Int64Var(&seed, "seed", 42, "PRNG seed, fixed by default so runs are reproducible")
	flag.Parse()

	rng := rand.New(rand.NewSource(seed))

	f, err := os.Create(out)
	if err != nil {
		log.Fatalf("create %s: %v", out, err)
	}
	defer f.Close()
	w := bufio.NewWriterSize(f, 1<<20)
	defer w.Flush()

	fmt.Fprintln(w, "Customer Id,First Name,Last Name,Company,City,Country,Phone 1,Phone 2,Email,Subscription Date,Website,About Customer")

	start := time.Now()
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := int64(1); i <= rows; i++ {
		r := rng.Float64()
		switch {
		case r < dirtyRatio/3:
			// Duplicate of an earlier id: the importer's last-wins dedup
			// and insert-vs-update classification must absorb these.
			dup := rng.Int63n(i) + 1
			fmt.Fprintf(w, "CUST%08d,%s,%s,,,,,,cust%d@example.com,,,re-imported record\n",
				dup, pick(rng, firstNames), pick(rng, lastNames), dup)
		case r < dirtyRatio*2/3:
			// Email-only row: admitted under the fallback identifier.
			fmt.Fprintf(w, ",%s,%s,,,,,,emailonly%d@example.com,,,\n",
				pick(rng, firstNames), pick(rng, lastNames), i)
		case r < dirtyRatio:
			// No identifier at all: silently skipped by the mapper.
			fmt.Fprintf(w, ",%s,,,%s,,,,,,,\n", pick(rng, firstNames), pick(rng, cities))
		default:
			sub := base.Add(time.Duration(rng.Int63n(1500)) * 24 * time.Hour)
			fmt.Fprintf(w, "CUST%08d,%s,%s,%s,%s,%s,+1-555-%07d,,cust%d@example.com,%s,https://example.com/u/%d,generated fixture row\n",
				i, pick(rng, firstNames), pick(rng, lastNames),
				pick(rng, companies), pick(rng, cities), pick(rng, countries),
				rng.Intn(10_000_000), i, sub.Format("2006-01-02"), i)
		}

		if i%1_000_000 == 0 {
			log.Printf("wrote %dM rows (%.1fs elapsed)", i/1_000_000, time.Since(start).Seconds())
		}
	}

	if err := w.Flush(); err != nil {
		log.Fatalf("flush: %v", err)
	}
	info, _ := f.Stat()
	log.Printf("done: %d rows, %d bytes -> %s", rows, info.Size(), out)
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}
