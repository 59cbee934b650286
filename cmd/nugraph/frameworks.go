// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nugraph/nugraph/pkg/framework"
)

func newFrameworksCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "frameworks <target> [candidate...]",
		Short: "Check which framework monikers a target framework can consume",
		Long: `Parse a target framework moniker and report, for each candidate moniker,
whether a package built for it can be consumed by the target. The nearest
compatible candidate is the one resolve would pick as dependency group.`,
		Example: `  nugraph frameworks net8.0 netstandard2.0 net472 net6.0
  nugraph frameworks .NETFramework4.7.2 netstandard2.0`,
		Args:        usageArgs(cobra.MinimumNArgs(1)),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(_ *cobra.Command, args []string) error {
			return classifyError(app.checkFrameworks(args[0], args[1:]))
		},
	}
}

func (a *App) checkFrameworks(target string, candidates []string) error {
	tfm, err := framework.Parse(target)
	if err != nil {
		return err
	}

	p := a.palette()
	fmt.Fprintln(a.stdout, p.title.Render(tfm.ShortFolderName())+p.subtitle.Render(" ("+describeFramework(tfm)+")"))
	if len(candidates) == 0 {
		return nil
	}

	status := make([]string, len(candidates))
	rows := make([][]string, len(candidates))
	for i, c := range candidates {
		fw, err := framework.Parse(c)
		switch {
		case err != nil:
			status[i] = "unsupported"
		case framework.IsCompatible(tfm, fw):
			status[i] = "yes"
		default:
			status[i] = "no"
		}
		name := c
		if err == nil {
			name = fw.ShortFolderName()
		}
		rows[i] = []string{name, status[i]}
	}

	t := newTable(p, func(row int) (lipgloss.Style, bool) {
		switch status[row] {
		case "yes":
			return p.success, true
		case "no":
			return p.fail, true
		}
		return p.verbose, true
	}, "CANDIDATE", "COMPATIBLE").Rows(rows...)
	fmt.Fprintln(a.stdout, t.Render())

	if nearest, ok := framework.NewOracle().SelectNearest(candidates, target); ok {
		fmt.Fprintln(a.stdout, p.success.Render("Nearest: ")+p.key.Render(groupLabel(nearest)))
	} else {
		fmt.Fprintln(a.stdout, p.warning.Render("No compatible candidate"))
	}
	return nil
}

// describeFramework renders the family and version, "Any" for the agnostic framework.
func describeFramework(fw framework.Framework) string {
	if fw.IsAny() {
		return fw.Family.String()
	}
	last := 1
	for i := len(fw.Version) - 1; i > 1; i-- {
		if fw.Version[i] != 0 {
			last = i
			break
		}
	}
	parts := make([]string, 0, last+1)
	for _, n := range fw.Version[:last+1] {
		parts = append(parts, strconv.Itoa(n))
	}
	desc := fw.Family.String() + " " + strings.Join(parts, ".")
	if fw.Platform != "" {
		desc += " on " + fw.Platform
	}
	return desc
}
