package main

import (
	"fmt"
	"os"
	"time"

	"boxfm/internal/browse"
	"boxfm/internal/search"
	"boxfm/pkg/fsutil"
	"boxfm/pkg/pathguard"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) lsCmd() *cobra.Command {
	var (
		showHidden bool
		bySize     bool
		byDate     bool
		reverse    bool
	)
	cmd := &cobra.Command{
		Use:   "ls [dir]",
		Short: "List a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			opts := browse.Options{
				ShowHidden: showHidden || a.cfg.ShowHidden,
				Reverse:    reverse,
			}
			switch {
			case bySize:
				opts.Sort = browse.SortBySize
			case byDate:
				opts.Sort = browse.SortByDate
			}

			entries, err := a.lister.List(fsutil.ExpandPath(dir), opts)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s  %16s  %s\n", e.SizeLabel, e.Modified, e.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showHidden, "all", "a", false, "include hidden entries")
	cmd.Flags().BoolVarP(&bySize, "size", "S", false, "sort by size")
	cmd.Flags().BoolVarP(&byDate, "date", "t", false, "sort by modification time")
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "reverse the sort order")
	return cmd
}

func (a *app) cpCmd() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "cp <src> <dst>",
		Short: "Copy a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.files.Copy(fsutil.ExpandPath(args[0]), fsutil.ExpandPath(args[1]), overwrite)
		},
	}
	cmd.Flags().BoolVarP(&overwrite, "force", "f", false, "overwrite an existing destination")
	return cmd
}

func (a *app) mvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <src> <dst>",
		Short: "Move a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.files.Move(fsutil.ExpandPath(args[0]), fsutil.ExpandPath(args[1]))
		},
	}
}

func (a *app) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <path> <new-name>",
		Short: "Rename a file or directory in place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.files.Rename(fsutil.ExpandPath(args[0]), args[1])
		},
	}
}

func (a *app) rmCmd() *cobra.Command {
	var permanent bool
	cmd := &cobra.Command{
		Use:   "rm <path>...",
		Short: "Delete files or directories",
		Long:  "Deletes the given paths. By default items go to the trash and can be restored; --permanent removes them immediately.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useTrash := a.cfg.UseTrash && !permanent
			for _, arg := range args {
				if err := a.files.Delete(fsutil.ExpandPath(arg), useTrash); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&permanent, "permanent", "P", false, "bypass the trash")
	return cmd
}

func (a *app) mkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <dir>",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.files.Mkdir(fsutil.ExpandPath(args[0]))
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <path>",
		Short: "Show details about a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.files.Info(fsutil.ExpandPath(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:     %s\n", info.Name)
			fmt.Fprintf(out, "Path:     %s\n", info.Path)
			fmt.Fprintf(out, "Size:     %s (%d bytes)\n", fsutil.FormatSize(info.Size), info.Size)
			fmt.Fprintf(out, "Modified: %s\n", fsutil.FormatDate(info.Modified))
			fmt.Fprintf(out, "Mode:     %s\n", info.Mode)
			fmt.Fprintf(out, "Type:     %s\n", describeType(info.IsDir, info.IsSymlink, info.MimeType))
			return nil
		},
	}
}

func describeType(isDir, isSymlink bool, mimeType string) string {
	switch {
	case isDir:
		return "directory"
	case isSymlink:
		return "symlink, " + mimeType
	default:
		return mimeType
	}
}

// checkCmd exposes the gate verdict directly: useful for scripting and for
// understanding why an operation was refused.
func (a *app) checkCmd() *cobra.Command {
	var opName string
	cmd := &cobra.Command{
		Use:   "check <src> [dst]",
		Short: "Report whether an operation would be allowed",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := pathguard.ParseOperation(opName)
			if err != nil {
				return err
			}
			dst := ""
			if len(args) == 2 {
				dst = fsutil.ExpandPath(args[1])
			}

			verdict := a.guard.IsSafeOperation(fsutil.ExpandPath(args[0]), dst, op)
			fmt.Fprintln(cmd.OutOrStdout(), verdict.Reason)
			if !verdict.Safe {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opName, "op", "o", "copy", "operation to check (copy, move, rename, delete)")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var (
		useRegexp     bool
		caseSensitive bool
		includeHidden bool
		extensions    []string
		minSize       int64
		maxSize       int64
		maxResults    int
	)
	cmd := &cobra.Command{
		Use:   "search <dir> <pattern>",
		Short: "Find files by name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := search.Options{
				CaseSensitive: caseSensitive,
				IncludeHidden: includeHidden,
				Extensions:    extensions,
				MinSize:       minSize,
				MaxSize:       maxSize,
				MaxResults:    maxResults,
			}
			if useRegexp {
				opts.Mode = search.ModeRegexp
			}

			results, err := a.search.Search(cmd.Context(), fsutil.ExpandPath(args[0]), args[1], opts)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), r.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&useRegexp, "regexp", "E", false, "treat the pattern as a regular expression")
	cmd.Flags().BoolVarP(&caseSensitive, "case-sensitive", "c", false, "match case exactly")
	cmd.Flags().BoolVarP(&includeHidden, "all", "a", false, "descend into hidden directories")
	cmd.Flags().StringSliceVarP(&extensions, "ext", "e", nil, "restrict to these extensions")
	cmd.Flags().Int64Var(&minSize, "min-size", 0, "minimum file size in bytes")
	cmd.Flags().Int64Var(&maxSize, "max-size", 0, "maximum file size in bytes")
	cmd.Flags().IntVarP(&maxResults, "limit", "n", 0, "stop after this many matches")
	return cmd
}

func (a *app) trashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trash",
		Short: "Inspect and manage the trash",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List trashed items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.trash.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, item := range items {
				fmt.Fprintf(out, "%-40s  %10s  %s  %s\n",
					item.TrashName,
					humanize.Bytes(uint64(item.Size)),
					item.DeletedAt.Format("2006-01-02 15:04"),
					item.OriginalPath,
				)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <trash-name>",
		Short: "Restore a trashed item to its original location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			restored, err := a.trash.Restore(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored to %s\n", restored)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <trash-name>",
		Short: "Permanently delete a trashed item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.trash.DeletePermanently(args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "empty",
		Short: "Permanently delete everything in the trash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.trash.Empty()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", removed)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Remove items older than the configured retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			maxAge := time.Duration(a.cfg.TrashMaxAgeDays) * 24 * time.Hour
			removed, err := a.trash.AutoCleanup(maxAge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", removed)
			return nil
		},
	})

	return cmd
}

func (a *app) archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Create, inspect and extract archives",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <archive> <source>...",
		Short: "Create a zip, tar or tar.gz archive",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := make([]string, 0, len(args)-1)
			for _, src := range args[1:] {
				sources = append(sources, fsutil.ExpandPath(src))
			}
			return a.archive.Create(fsutil.ExpandPath(args[0]), sources)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "extract <archive> <dir>",
		Short: "Extract an archive into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.archive.Extract(fsutil.ExpandPath(args[0]), fsutil.ExpandPath(args[1]))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list <archive>",
		Short: "List the contents of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.archive.List(fsutil.ExpandPath(args[0]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%10d  %s\n", e.Size, e.Name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "test <archive>",
		Short: "Verify that an archive decodes cleanly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.archive.Test(fsutil.ExpandPath(args[0])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	})

	return cmd
}

func (a *app) dfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "df [path]",
		Short: "Show free space on the filesystem holding a path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}

			real, err := a.guard.ValidatePath(fsutil.ExpandPath(path))
			if err != nil {
				return err
			}
			total, free, err := fsutil.DiskUsage(real)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s free of %s\n",
				real, humanize.Bytes(free), humanize.Bytes(total))
			return nil
		},
	}
}
