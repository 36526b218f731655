package schema

import (
	"io"
	"os"

	"github.com/pterm/pterm"
)

// PtermSink prints the classification as a tree of tabs and functions.
type PtermSink struct {
	Out io.Writer
	// ShowEmpty includes tabs without functions.
	ShowEmpty bool
}

// BindOperations implements FormSink.
func (s PtermSink) BindOperations(c Classification) {
	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	if c.Empty() {
		pterm.Fprintln(out, pterm.Warning.Sprint("The chaincode declared no functions."))
		return
	}
	root := pterm.TreeNode{Text: pterm.Bold.Sprint("Operations")}
	for _, tab := range c.Tabs {
		if len(tab.Functions) == 0 && !s.ShowEmpty {
			continue
		}
		node := pterm.TreeNode{Text: pterm.FgLightCyan.Sprint(tab.Name)}
		for i, fn := range tab.Functions {
			label := fn.Name
			if i == tab.Selected {
				label += pterm.FgGray.Sprint(" (default)")
			}
			if fn.Method != "" {
				label += pterm.FgGray.Sprint(" [" + fn.Method + "]")
			}
			node.Children = append(node.Children, pterm.TreeNode{Text: label})
		}
		root.Children = append(root.Children, node)
	}
	text, err := pterm.DefaultTree.WithRoot(root).Srender()
	if err != nil {
		pterm.Fprintln(out, err.Error())
		return
	}
	pterm.Fprint(out, text)
}
