package me

import (
	"fmt"
	"strings"

	multierror "github.com/hashicorp/go-multierror"

	bytesrange "github.com/fiedka/go-me-fs/pkg/bytes"
	"github.com/fiedka/go-me-fs/pkg/byteview"
	"github.com/fiedka/go-me-fs/pkg/mfs2"
	"github.com/fiedka/go-me-fs/pkg/mfs3"
)

// PartitionKind is the closed set of ways a partition's contents were
// successfully interpreted, or failed to be.
type PartitionKind int

const (
	PartitionOpaque PartitionKind = iota
	PartitionCPD
	PartitionGen2Dir
	PartitionMFS2
	PartitionMFS3
)

func (k PartitionKind) String() string {
	switch k {
	case PartitionCPD:
		return "CPD"
	case PartitionGen2Dir:
		return "Gen2"
	case PartitionMFS2:
		return "MFS2"
	case PartitionMFS3:
		return "MFS3"
	default:
		return "Opaque"
	}
}

// Partition is one entry of the flash partition table together with its
// clipped data and, where recognized, its decoded contents.
type Partition struct {
	Entry Entry
	Data  []byte
	Kind  PartitionKind

	CPD     *CPDDirectory
	Gen2Dir *Gen2Directory
	MFS2    *mfs2.Volume
	MFS3    *mfs3.Volume

	// Note carries a non-fatal decode failure for this partition; a
	// populated Note never aborts the overall image parse.
	Note error
}

// Entry is an alias kept for readability at call sites that don't care
// this is the same type ScanFPT already decodes.
type Entry = FPTEntry

func (p Partition) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", p.Entry.String(), p.Kind)
	if desc := DescribePartition(p.Entry.NameString()); desc != "" {
		fmt.Fprintf(&b, " — %s", desc)
	}
	if p.Note != nil {
		fmt.Fprintf(&b, " (note: %s)", p.Note)
	}
	return b.String()
}

// Image is the fully parsed firmware image: its flash partition table,
// optional FIT, and the per-partition dispatch results.
type Image struct {
	Base       int
	FPTHeader  FPTHeader
	FPTEntries []FPTEntry
	Partitions []Partition
	FIT        *FITResult

	imageLen int
}

func (img *Image) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", img.FPTHeader.String())
	for _, p := range img.Partitions {
		fmt.Fprintf(&b, "  %s\n", p.String())
	}
	if img.FIT != nil {
		fmt.Fprintf(&b, "%s\n", img.FIT.String())
	}
	return b.String()
}

// Parse decodes a complete ME/CSE firmware image: the flash partition
// table, the FIT (if present), and every partition's contents, dispatched
// per its name and leading bytes. Only a missing $FPT is fatal; every
// other decode failure is attached to its Partition as a Note and the
// scan continues.
func Parse(image []byte) (*Image, error) {
	fpt, err := ScanFPT(image)
	if err != nil {
		return nil, err
	}

	img := &Image{
		Base:       fpt.Base,
		FPTHeader:  fpt.Header,
		FPTEntries: fpt.Entries,
		imageLen:   len(image),
	}

	fit, fitErr := ParseFIT(image)

	v := byteview.New(image)

	var notes *multierror.Error
	if fit != nil {
		img.FIT = fit
		if fitErr != nil {
			notes = multierror.Append(notes, fmt.Errorf("FIT: %w", fitErr))
		}
	}
	for _, entry := range fpt.Entries {
		start, end := resolvePartitionRange(fpt.Base, entry, len(image))
		data := image[start:end]

		part := Partition{Entry: entry, Data: data}
		dispatchPartition(&part, v, start, data)
		if part.Note != nil {
			notes = multierror.Append(notes, fmt.Errorf("partition %s: %w", entry.NameString(), part.Note))
		}

		img.Partitions = append(img.Partitions, part)
	}

	return img, notes.ErrorOrNil()
}

// dispatchPartition interprets one partition's bytes per spec.md §4.6:
// known code-holding names are tried as $CPD then as a Gen 2 directory;
// known MFS-holding names are dispatched Gen 2 vs Gen 3 by their leading
// word; anything else is probed for a stray $CPD magic and otherwise
// left opaque.
func dispatchPartition(part *Partition, v byteview.View, offset int, data []byte) {
	name := part.Entry.NameString()

	switch name {
	case "MDMV", "DLMP", "FTPR", "NFTP":
		if looksLikeCPD(data) {
			cpd, err := ParseCPD(v, offset)
			if cpd != nil {
				part.Kind = PartitionCPD
				part.CPD = cpd
			}
			part.Note = err
			return
		}
		if dir, err := ParseGen2Directory(v, offset); err == nil {
			part.Kind = PartitionGen2Dir
			part.Gen2Dir = dir
			return
		}
		part.Kind = PartitionOpaque

	case "MFS", "AFSP", "EFFS":
		if mfs3.Gen2Heuristic(data) {
			vol, err := mfs2.Parse(data)
			if err != nil {
				part.Note = err
				return
			}
			part.Kind = PartitionMFS2
			part.MFS2 = vol
			return
		}
		vol, err := mfs3.Parse(data)
		if err != nil {
			part.Note = err
			return
		}
		part.Kind = PartitionMFS3
		part.MFS3 = vol

	default:
		if looksLikeCPD(data) {
			cpd, err := ParseCPD(v, offset)
			if cpd != nil {
				part.Kind = PartitionCPD
				part.CPD = cpd
			}
			if err != nil {
				part.Note = fmt.Errorf("unrecognized name %q carries $CPD: %w", name, err)
			}
			return
		}
		part.Kind = PartitionOpaque
	}
}

func looksLikeCPD(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == cpdMagic
}

// PartitionRanges returns the absolute image byte range (base already
// added, clipped to the image) covered by each partition entry, in
// table order.
func (img *Image) PartitionRanges() bytesrange.Ranges {
	ranges := make(bytesrange.Ranges, 0, len(img.FPTEntries))
	for _, entry := range img.FPTEntries {
		start, end := resolvePartitionRange(img.Base, entry, img.imageLen)
		ranges = append(ranges, bytesrange.Range{Offset: uint64(start), Length: uint64(end - start)})
	}
	return ranges
}

// OverlappingPartitions reports pairs of partition table indices whose
// byte ranges intersect — a sign of a corrupt or adversarially crafted
// flash layout, since well-formed images never alias partitions.
func (img *Image) OverlappingPartitions() [][2]int {
	ranges := img.PartitionRanges()
	var overlaps [][2]int
	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			if ranges[i].Intersect(ranges[j]) {
				overlaps = append(overlaps, [2]int{i, j})
			}
		}
	}
	return overlaps
}
