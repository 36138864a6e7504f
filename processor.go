package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// Export tools disambiguate clashing names with a "(1)" style counter,
// e.g. "IMG_0001(1).jpg" next to "IMG_0001.jpg".
var duplicateCounter = regexp.MustCompile(`\(\d+\)`)

// Outcome is where a single directory entry ended up
type Outcome int

const (
	OutcomeSkipped   Outcome = iota // sidecar or directory, nothing to do
	OutcomeDuplicate                // moved to duplicate/
	OutcomeUndefined                // no sidecar, moved to undefined/
	OutcomeProcessed                // sidecar applied
	OutcomeFailed                   // logged and left in place
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeUndefined:
		return "undefined"
	case OutcomeProcessed:
		return "processed"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// EntryResult is the result of processing one directory entry
type EntryResult struct {
	Outcome  Outcome
	Modified bool  // metadata was patched, for OutcomeProcessed
	Err      error // cause of OutcomeFailed
}

// Processor fixes the timestamps of one working folder
type Processor struct {
	config    *Config
	log       zerolog.Logger
	patcher   *Patcher
	stats     *ProcessStats
	out       io.Writer
	startTime time.Time
}

// ProcessStats tracks statistics during processing
type ProcessStats struct {
	TotalEntries int
	Processed    int
	Patched      int
	Duplicates   int
	Undefined    int
	Skipped      int
	Errors       int
}

// NewProcessor creates a new processor for config.Folder
func NewProcessor(config *Config, logger zerolog.Logger) *Processor {
	return &Processor{
		config:  config,
		log:     logger,
		patcher: NewPatcher(logger),
		stats:   &ProcessStats{},
		out:     os.Stdout,
	}
}

// Close releases the metadata writer
func (p *Processor) Close() error {
	return p.patcher.Close()
}

// Stats returns the counters of the last run
func (p *Processor) Stats() ProcessStats {
	return *p.stats
}

// Process runs once over the working folder. Per-file problems are
// logged and counted; only a folder that cannot be listed is an error.
func (p *Processor) Process() error {
	p.startTime = time.Now()
	*p.stats = ProcessStats{}

	// The listing is taken up front, so files moved or rewritten during
	// the run are never visited twice.
	entries, err := os.ReadDir(p.config.Folder)
	if err != nil {
		return errors.WithMessagef(ErrDirectoryList, "%s: %v", p.config.Folder, err)
	}

	p.stats.TotalEntries = len(entries)
	p.log.Info().Int("entries", len(entries)).Str("folder", p.config.Folder).Msg("files and directories found")

	bar := p.newProgressBar(len(entries))
	for _, entry := range entries {
		p.record(entry.Name(), p.processEntry(entry))
		if err := bar.Add(1); err != nil {
			p.log.Debug().Err(err).Msg("progress bar update failed")
		}
	}
	if err := bar.Finish(); err != nil {
		p.log.Debug().Err(err).Msg("progress bar finish failed")
	}

	p.printStats()
	return nil
}

func (p *Processor) newProgressBar(total int) *progressbar.ProgressBar {
	if !p.config.Progress {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.Default(int64(total), "fixing timestamps")
}

// processEntry runs the per-file decision sequence
func (p *Processor) processEntry(entry os.DirEntry) EntryResult {
	name := entry.Name()

	// Quarantine folders and anything else that is not a file stay put.
	if entry.IsDir() || strings.Contains(name, ".json") {
		return EntryResult{Outcome: OutcomeSkipped}
	}

	imagePath := filepath.Join(p.config.Folder, name)

	if duplicateCounter.MatchString(name) {
		base := duplicateCounter.ReplaceAllString(name, "")
		if _, err := os.Stat(filepath.Join(p.config.Folder, base)); err == nil {
			if err := RouteFile(name, imagePath, filepath.Join(p.config.Folder, DuplicateDir)); err != nil {
				return EntryResult{Outcome: OutcomeFailed, Err: err}
			}
			return EntryResult{Outcome: OutcomeDuplicate}
		}
	}

	jsonPath := sidecarPath(imagePath)
	if _, err := os.Stat(jsonPath); os.IsNotExist(err) {
		return p.processWithoutSidecar(name, imagePath, jsonPath)
	} else if err != nil {
		return EntryResult{Outcome: OutcomeFailed, Err: errors.Wrap(err, "check sidecar")}
	}

	takenTime, err := readTakenTime(jsonPath)
	if err != nil {
		return EntryResult{Outcome: OutcomeFailed, Err: err}
	}

	modified, err := p.patcher.Patch(imagePath, takenTime, true)
	if err != nil {
		return EntryResult{Outcome: OutcomeFailed, Err: err}
	}
	return EntryResult{Outcome: OutcomeProcessed, Modified: modified}
}

// processWithoutSidecar runs a read-only patch on the image, then sets it
// aside in undefined/
func (p *Processor) processWithoutSidecar(name, imagePath, jsonPath string) EntryResult {
	p.log.Info().Str("file", name).Err(errors.WithMessage(ErrSidecarNotFound, jsonPath)).Msg("metadata file not found")

	modified, err := p.patcher.Patch(imagePath, "", false)
	if err != nil {
		p.log.Debug().Err(err).Str("file", name).Msg("read-only patch failed")
	}
	if modified {
		// Unreachable with editing disabled; keep the file where it is.
		return EntryResult{Outcome: OutcomeFailed, Err: errors.Errorf("%s changed by a read-only patch", name)}
	}

	if err := RouteFile(name, imagePath, filepath.Join(p.config.Folder, UndefinedDir)); err != nil {
		return EntryResult{Outcome: OutcomeFailed, Err: err}
	}
	return EntryResult{Outcome: OutcomeUndefined}
}

// record logs and counts the result of one entry
func (p *Processor) record(name string, res EntryResult) {
	switch res.Outcome {
	case OutcomeSkipped:
		p.stats.Skipped++
		p.log.Debug().Str("file", name).Msg("skipped")
	case OutcomeDuplicate:
		p.stats.Duplicates++
		p.log.Info().Str("file", name).Str("dest", DuplicateDir).Msg("duplicate moved")
	case OutcomeUndefined:
		p.stats.Undefined++
		p.log.Info().Str("file", name).Str("dest", UndefinedDir).Msg("file without metadata moved")
	case OutcomeProcessed:
		p.stats.Processed++
		if res.Modified {
			p.stats.Patched++
		}
		p.log.Info().Str("file", name).Bool("modified", res.Modified).Msg("file processed successfully")
	case OutcomeFailed:
		p.stats.Errors++
		if errors.Is(res.Err, ErrDestinationExists) {
			p.log.Warn().Str("file", name).Err(res.Err).Msg("file already exists")
			return
		}
		p.log.Error().Str("file", name).Err(res.Err).Msg("error")
	}
}

// printStats prints processing statistics
func (p *Processor) printStats() {
	fmt.Fprintln(p.out, "\n=== Processing Statistics ===")
	fmt.Fprintf(p.out, "Entries listed:         %d\n", p.stats.TotalEntries)
	fmt.Fprintf(p.out, "Processed with sidecar: %d\n", p.stats.Processed)
	fmt.Fprintf(p.out, "Metadata updated:       %d\n", p.stats.Patched)
	fmt.Fprintf(p.out, "Moved to %-14s %d\n", DuplicateDir+":", p.stats.Duplicates)
	fmt.Fprintf(p.out, "Moved to %-14s %d\n", UndefinedDir+":", p.stats.Undefined)
	fmt.Fprintf(p.out, "Skipped:                %d\n", p.stats.Skipped)
	fmt.Fprintf(p.out, "Errors:                 %d\n", p.stats.Errors)
	fmt.Fprintf(p.out, "Elapsed:                %s\n", time.Since(p.startTime).Round(time.Second))
	fmt.Fprintln(p.out, "=============================")
}
