// Package version carries the build-time identity of the cidaily binary.
package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	projectName = "cidaily"
	version     = "unknown"
	commit      = "unknown"
)

var Version = VersionContext{
	Name:    projectName,
	Version: version,
	Commit:  commit,
}

type VersionContext struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

func (vc *VersionContext) String() string {
	return fmt.Sprintf("%s: %s+%s", vc.Name, vc.Version, vc.Commit)
}

func NewCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cidaily version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version.String())
		},
	}
}
