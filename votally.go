/*
Package votally runs a single election over a network. A poll server publishes
the candidate choices to every connected voter, moves through the registering,
balloting and closed phases on the operator's command, collects one ballot per
connection and broadcasts the winner once balloting ends.
*/
package votally

import "fmt"

// Version components of the package.
const (
	VersionMajor = 0
	VersionMinor = 3
	VersionPatch = 1
)

// PackageVersion is the semantic version of the votally package.
var PackageVersion = Version()

// DefaultPort is the well-known TCP port of a poll server.
const DefaultPort = 50001

// Version returns the semantic version of the package.
func Version() string {
	return fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
}
