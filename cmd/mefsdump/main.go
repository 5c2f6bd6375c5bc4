// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// mefsdump parses an Intel ME/CSE firmware image and prints its flash
// partition table, FIT, and the contents of every recognized partition
// (code directories, module directories, and MFS volumes).
//
// Synopsis:
//
//	mefsdump -f IMAGE_FILE [-v] [-q]
package main

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/jedib0t/go-pretty/v6/table"
	flags "github.com/jessevdk/go-flags"

	"github.com/fiedka/go-me-fs/pkg/log"
	"github.com/fiedka/go-me-fs/pkg/me"
)

type options struct {
	ImagePath string `short:"f" long:"file" description:"path to the ME/CSE firmware image" required:"true"`
	Quiet     bool   `short:"q" long:"quiet" description:"suppress the partition table, print only errors"`
	Verbose   bool   `short:"v" long:"verbose" description:"print directory entries and MFS volume details"`
	Debug     bool   `long:"debug" description:"print soft per-partition decode notes"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	f, err := os.Open(opts.ImagePath)
	if err != nil {
		log.Fatalf("unable to open %q: %v", opts.ImagePath, err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		log.Fatalf("unable to mmap %q: %v", opts.ImagePath, err)
	}
	defer m.Unmap()

	img, err := me.Parse(m)
	if err != nil {
		if _, fatal := err.(*me.ErrNoFpt); fatal {
			log.Fatalf("%v", err)
		}
		if opts.Debug {
			log.Warnf("soft decode notes: %v", err)
		}
	}

	if !opts.Quiet {
		printPartitionTable(img)
		if opts.Verbose {
			printDetails(img)
		}
		if img.FIT != nil {
			fmt.Println(img.FIT.String())
		}
	}

	if overlaps := img.OverlappingPartitions(); len(overlaps) > 0 {
		log.Warnf("%d overlapping partition range(s) detected", len(overlaps))
	}
}

func printPartitionTable(img *me.Image) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Name", "Offset", "Size", "Kind", "Description"})
	for _, p := range img.Partitions {
		t.AppendRow([]interface{}{
			p.Entry.NameString(),
			fmt.Sprintf("%#x", p.Entry.Offset),
			fmt.Sprintf("%#x", p.Entry.Size),
			p.Kind.String(),
			me.DescribePartition(p.Entry.NameString()),
		})
	}
	t.Render()
}

func printDetails(img *me.Image) {
	for _, p := range img.Partitions {
		switch p.Kind {
		case me.PartitionCPD:
			fmt.Println(p.CPD.String())
			for _, e := range p.CPD.Entries {
				fmt.Printf("  %s\n", e.String())
			}
		case me.PartitionGen2Dir:
			fmt.Println(p.Gen2Dir.String())
			for _, e := range p.Gen2Dir.Entries {
				fmt.Printf("  %s\n", e.String())
			}
		case me.PartitionMFS2:
			fmt.Printf("MFS2 volume: %d pages, %d unique log IDs\n", len(p.MFS2.Pages), p.MFS2.UniqueLogIDs())
		case me.PartitionMFS3:
			fmt.Printf("MFS3 volume: N_sys=%d, %d files\n", p.MFS3.NSys, p.MFS3.Header.FileCount)
		}
		if p.Note != nil {
			fmt.Printf("  note: %v\n", p.Note)
		}
	}
}
