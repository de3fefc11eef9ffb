package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bio/encoding/bamprovider"
	"github.com/grailbio/bio/encoding/fasta"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/pmdmask/mask"
	"github.com/grailbio/pmdmask/misincorporation"
)

var (
	misincorporationPath = flag.String("misincorporation", "", "Input mapDamage misincorporation.txt path (required)")
	threshold            = flag.Float64("threshold", 0.01, "Misincorporation frequency at or below which masking stops")
	outputPath           = flag.String("output", "", "Output BAM path (required)")
	bamIndexPath         = flag.String("index", "", "Input BAM index path. Defaults to bampath + .bai")
	metricsPath          = flag.String("metrics", "", "Optional TSV path to write the resolved per-(chromosome, strand) masking thresholds to")
	parallelism          = flag.Int("parallelism", runtime.NumCPU(), "Number of BAM compression threads")
)

func pmdMaskUsage() {
	fmt.Printf("Usage: %s [OPTIONS] bampath fapath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = pmdMaskUsage
	shutdown := grail.Init()
	defer shutdown()

	allArgs := flag.Args()
	nPositionalArgs := flag.NArg()
	positionalArgs := allArgs[len(allArgs)-nPositionalArgs:]
	if nPositionalArgs != 2 {
		if nPositionalArgs < 2 {
			log.Fatalf("Missing positional arguments (bampath and fapath required); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
		} else {
			log.Fatalf("Too many positional arguments (only bampath and fapath expected); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
		}
	}
	bamPath, faPath := positionalArgs[0], positionalArgs[1]
	if *misincorporationPath == "" {
		log.Fatalf("-misincorporation is required")
	}
	if *outputPath == "" {
		log.Fatalf("-output is required")
	}
	if filepath.Clean(bamPath) == filepath.Clean(*outputPath) {
		log.Fatalf("input and output may not be the same file: %s", bamPath)
	}

	ctx := vcontext.Background()

	log.Printf("computing masking thresholds from %s at threshold %g", *misincorporationPath, *threshold)
	table, err := misincorporation.ReadPath(ctx, *misincorporationPath, *threshold)
	if err != nil {
		log.Fatalf("%s: %v", *misincorporationPath, err)
	}
	if abnormal := table.RemoveAbnormal(); len(abnormal) > 0 {
		var b strings.Builder
		for i := range abnormal {
			fmt.Fprintf(&b, "\n  %s", abnormal[i].String())
		}
		log.Error.Printf("ignoring %d misincorporation rows with abnormal frequencies; their groups fall back to unbounded masking:%s",
			len(abnormal), b.String())
	}
	masks, err := mask.New(table)
	if err != nil {
		log.Fatalf("building threshold index: %v", err)
	}
	log.Printf("thresholds resolved for %d (chromosome, strand) pairs", masks.Len())

	if *metricsPath != "" {
		if err := writeMetrics(ctx, masks, *metricsPath); err != nil {
			log.Fatalf("%s: %v", *metricsPath, err)
		}
		log.Printf("wrote masking thresholds to %s", *metricsPath)
	}

	fa, faCleanup, err := openFasta(ctx, faPath)
	if err != nil {
		log.Fatalf("%s: %v", faPath, err)
	}
	defer faCleanup()

	provider := bamprovider.NewProvider(bamPath, bamprovider.ProviderOpts{Index: *bamIndexPath})
	header, err := provider.GetHeader()
	if err != nil {
		log.Fatalf("%s: %v", bamPath, err)
	}
	out, err := file.Create(ctx, *outputPath)
	if err != nil {
		log.Fatalf("%s: %v", *outputPath, err)
	}
	w, err := bam.NewWriter(out.Writer(ctx), header, *parallelism)
	if err != nil {
		log.Fatalf("%s: %v", *outputPath, err)
	}

	log.Printf("applying PMD masking")
	err = mask.Process(provider, fa, masks, w)
	if e := w.Close(); e != nil && err == nil {
		err = e
	}
	if e := out.Close(ctx); e != nil && err == nil {
		err = e
	}
	if e := provider.Close(); e != nil && err == nil {
		err = e
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("done")
}

// openFasta opens the reference, using the .fai companion index when one
// exists so that per-read window fetches avoid loading the whole genome.
func openFasta(ctx context.Context, faPath string) (fasta.Fasta, func(), error) {
	in, err := file.Open(ctx, faPath)
	if err != nil {
		return nil, nil, err
	}
	if idx, idxErr := file.Open(ctx, faPath+".fai"); idxErr == nil {
		fa, err := fasta.NewIndexed(in.Reader(ctx), idx.Reader(ctx))
		if err != nil {
			_ = idx.Close(ctx)
			_ = in.Close(ctx)
			return nil, nil, err
		}
		cleanup := func() {
			_ = idx.Close(ctx)
			_ = in.Close(ctx)
		}
		return fa, cleanup, nil
	}
	log.Debug.Printf("%s.fai: no index, reading the whole reference", faPath)
	reader, _ := compress.NewReader(in.Reader(ctx))
	fa, err := fasta.New(reader)
	if e := reader.Close(); e != nil && err == nil {
		err = e
	}
	if e := in.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return nil, nil, err
	}
	return fa, func() {}, nil
}

func writeMetrics(ctx context.Context, masks *mask.Masks, path string) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if e := out.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	return masks.Write(out.Writer(ctx))
}
