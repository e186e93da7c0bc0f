// Command nmoinfo loads a scene-container file and prints its file info plus
// object/manager counts. It is the one permitted CLI surface (spec.md §6):
// it does not interpret object payloads, export JSON, or offer the
// inspector/debugger tooling that is out of scope for the core library.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/xerrors"

	"github.com/nmoscene/nmofile"
	"github.com/nmoscene/nmofile/internal/guid"
)

var (
	debug      = flag.Bool("debug", false, "format error messages with additional detail")
	strict     = flag.Bool("strict_references", false, "fail the load if any citation is left unresolved")
	duplicates = flag.Bool("check_duplicates", false, "report objects sharing a name")
	typeGUID   = flag.String("type_guid", "", "list objects whose type GUID matches this literal, e.g. {01234567-89ABCDEF}")
)

func funcmain() error {
	flag.Parse()
	if isatty.IsTerminal(os.Stderr.Fd()) {
		flag.Set("logtostderr", "true")
	}

	if flag.NArg() != 1 {
		return xerrors.Errorf("usage: nmoinfo <path.nmo>")
	}
	path := flag.Arg(0)

	loadFlags := nmofile.LoadDefault
	if *strict {
		loadFlags |= nmofile.LoadStrictReferences
	}
	if *duplicates {
		loadFlags |= nmofile.LoadCheckDuplicates
	}

	ctx := nmofile.NewContext()
	sess := nmofile.NewSession(ctx)
	defer sess.Close()

	if err := sess.Load(path, loadFlags); err != nil {
		return xerrors.Errorf("loading %s: %w", path, err)
	}

	info := sess.FileInfo()
	fmt.Printf("%s\n", path)
	fmt.Printf("  file_version:     %d (file_version2 %d)\n", info.FileVersion, info.FileVersion2)
	fmt.Printf("  ck_version:       %#x\n", info.CKVersion)
	fmt.Printf("  product:          version %d, build %d\n", info.ProductVersion, info.ProductBuild)
	fmt.Printf("  write_mode:       %#x\n", info.WriteMode)
	fmt.Printf("  objects:          %d (max id saved %d)\n", info.ObjectCount, info.MaxIDSaved)
	fmt.Printf("  managers:         %d\n", info.ManagerCount)
	fmt.Printf("  included files:   %d\n", len(sess.IncludedFiles()))

	stats := sess.FinishLoadStats()
	fmt.Printf("  references:       %d resolved, %d unresolved\n", stats.ResolvedReferences, stats.UnresolvedReferences)
	if len(stats.ManagerHookErrors) > 0 {
		fmt.Printf("  manager hook warnings: %d\n", len(stats.ManagerHookErrors))
	}
	if len(stats.DuplicateNames) > 0 {
		fmt.Printf("  duplicate names:  %v\n", stats.DuplicateNames)
	}

	for _, diag := range sess.PluginDiagnostics() {
		if diag.Status != 0 {
			fmt.Printf("  plugin %s (category %d): %v\n", diag.GUID, diag.Category, diag.Status)
		}
	}

	repo := sess.Objects()
	fmt.Printf("  class ids:        %v\n", repo.ClassIDs())
	if guids := repo.TypeGUIDs(); len(guids) > 0 {
		fmt.Printf("  type guids:       %v\n", guids)
	}

	if *typeGUID != "" {
		if !guid.IsStrictLiteral(*typeGUID) {
			return xerrors.Errorf("-type_guid %q does not look like a GUID literal (want {XXXXXXXX-XXXXXXXX})", *typeGUID)
		}
		g, err := guid.Parse(*typeGUID)
		if err != nil {
			return xerrors.Errorf("parsing -type_guid %q: %w", *typeGUID, err)
		}
		matches := repo.FindByGUID(g)
		fmt.Printf("  objects with type guid %s: %d\n", g, len(matches))
		for _, obj := range matches {
			fmt.Printf("    id %d  class %#x  %q\n", obj.ID, obj.ClassID, obj.Name)
		}
	}

	return nil
}

func main() {
	if err := funcmain(); err != nil {
		if *debug {
			fmt.Fprintf(os.Stderr, "%+v\n", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
