// Command badge_sheet renders a QR badge PNG for every student on the roster,
// ready for printing. The badge payload is the same JSON the scan endpoint
// decodes, so a printed badge can be scanned straight into the register.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kmssa/attendance-register/internal/service"
)

func main() {
	var (
		rosterPath string
		outDir     string
		size       int
	)

	flag.StringVar(&rosterPath, "roster", "", "Path to roster JSON file (empty uses the built-in roster)")
	flag.StringVar(&outDir, "out", "badges", "Output directory for badge PNGs")
	flag.IntVar(&size, "size", 512, "Badge image size in pixels")
	flag.Parse()

	roster, err := service.NewRosterService(rosterPath, zap.NewNop())
	if err != nil {
		log.Fatalf("failed to load roster: %v", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	written := 0
	for _, student := range roster.Students() {
		png, err := roster.BadgeQR(student.StudentID, size)
		if err != nil {
			log.Fatalf("failed to render badge for %s: %v", student.StudentID, err)
		}
		path := filepath.Join(outDir, fmt.Sprintf("%s.png", student.StudentID))
		if err := os.WriteFile(path, png, 0o644); err != nil {
			log.Fatalf("failed to write %s: %v", path, err)
		}
		written++
	}

	fmt.Printf("wrote %d badge(s) to %s\n", written, outDir)
}
