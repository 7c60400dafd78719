// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"github.com/spf13/cobra"

	"github.com/jhobel85/RuntimeDiagToolkit/internal/report"
	"github.com/jhobel85/RuntimeDiagToolkit/internal/rules"
)

func newReportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report <metrics-file>",
		Short: "Render an exported metrics snapshot as a human-readable report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := report.Load(args[0])
			if err != nil {
				return err
			}
			return report.Render(cmd.OutOrStdout(), snap, rules.Evaluate(snap))
		},
	}
}
