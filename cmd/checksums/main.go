// Command checksums writes dist/checksums.txt for every executable in the
// dist directory, in the "<sha256>  <name>" format the updater verifies
// against.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cti-precheck/internal/update"
)

func main() {
	distDir := flag.String("dist", "dist", "directory holding release executables")
	outName := flag.String("out", "checksums.txt", "output file name inside the dist directory")
	flag.Parse()

	entries, err := os.ReadDir(*distDir)
	if err != nil {
		log.Fatalf("read dist directory: %v", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".exe") {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		log.Fatalf("no .exe files found in %s", *distDir)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		hash, err := update.SHA256File(filepath.Join(*distDir, name))
		if err != nil {
			log.Fatalf("hash %s: %v", name, err)
		}
		lines = append(lines, hash+"  "+name)
		fmt.Println(hash + "  " + name)
	}

	outPath := filepath.Join(*distDir, *outName)
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		log.Fatalf("write %s: %v", outPath, err)
	}

	fmt.Fprintf(os.Stderr, "wrote %s (%d entries)\n", outPath, len(lines))
}
