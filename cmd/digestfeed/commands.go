package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"DigestFeed/internal/domain"
	"DigestFeed/internal/usecase"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Check digest documents and store them by date",
		Long: `Read each digest JSON document, apply the category policy, verify it
and store it. A digest replaces any digest already stored for the same date.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withArchive(cmd, func(archive *usecase.Archive) error {
				for _, path := range args {
					d, err := readDigest(cmd.InOrStdin(), path, func(r io.Reader) (domain.DigestJSON, error) {
						return archive.Import(cmd.Context(), r)
					})
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%d article(s)).\n", d.Date, len(d.Articles))
				}
				return nil
			})
		},
	}
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE...",
		Short: "Verify digest documents without storing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withArchive(cmd, func(archive *usecase.Archive) error {
				failed := 0
				for _, path := range args {
					d, err := readDigest(cmd.InOrStdin(), path, archive.Check)
					if err != nil {
						failed++
						fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "ok   %s (%s, %d article(s))\n", path, d.Date, len(d.Articles))
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d digest(s) failed the check", failed, len(args))
				}
				return nil
			})
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export DATE",
		Short: "Write a stored digest as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withArchive(cmd, func(archive *usecase.Archive) error {
				if out == "" || out == "-" {
					return archive.Export(cmd.Context(), args[0], cmd.OutOrStdout())
				}

				var buf bytes.Buffer
				if err := archive.Export(cmd.Context(), args[0], &buf); err != nil {
					return err
				}
				return writeFileAtomic(out, buf.Bytes())
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored digest dates, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withArchive(cmd, func(archive *usecase.Archive) error {
				dates, err := archive.Dates(cmd.Context())
				if err != nil {
					return err
				}
				if len(dates) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No digests stored.")
					return nil
				}
				for _, date := range dates {
					fmt.Fprintln(cmd.OutOrStdout(), date)
				}
				return nil
			})
		},
	}
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove DATE",
		Short: "Delete a stored digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withArchive(cmd, func(archive *usecase.Archive) error {
				if err := archive.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", args[0])
				return nil
			})
		},
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show DATE",
		Short: "Summarise a stored digest by category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withArchive(cmd, func(archive *usecase.Archive) error {
				ov, err := archive.Overview(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printOverview(cmd.OutOrStdout(), ov)
				return nil
			})
		},
	}
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print the category table",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, id := range domain.Categories() {
				meta := domain.MetaFor(id)
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s %s\n", id, meta.Emoji, meta.Label)
			}
		},
	}
}

// readDigest decodes the file at path, or stdin when path is "-".
func readDigest(stdin io.Reader, path string, decode func(io.Reader) (domain.DigestJSON, error)) (domain.DigestJSON, error) {
	if path == "-" {
		return decode(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.DigestJSON{}, err
	}
	defer f.Close()
	return decode(f)
}

// writeFileAtomic replaces path only once data is fully written beside it.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".digestfeed-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printOverview(w io.Writer, ov usecase.Overview) {
	s := ov.Stats
	fmt.Fprintf(w, "Digest %s\n", ov.Date)
	fmt.Fprintf(w, "Feeds %d/%d · articles %d → %d → %d · %dh · %s\n",
		s.SuccessFeeds, s.TotalFeeds, s.TotalArticles, s.FilteredArticles, s.SelectedCount, s.Hours, s.Lang)
	if h := strings.TrimSpace(ov.Highlights); h != "" {
		fmt.Fprintf(w, "\n%s\n", h)
	}

	for _, bucket := range ov.Buckets {
		fmt.Fprintf(w, "\n%s %s (%d)\n", bucket.Meta.Emoji, bucket.Meta.Label, len(bucket.Items))
		for _, item := range bucket.Items {
			title := item.Title
			if item.TitleZh != "" {
				title = item.TitleZh
			}
			fmt.Fprintf(w, "  %2d. [%.2f] %s\n", item.Rank, item.Score, title)
			fmt.Fprintf(w, "      %s\n", item.Link)
			if item.Snippet != "" {
				fmt.Fprintf(w, "      %s\n", item.Snippet)
			}
		}
	}
}
