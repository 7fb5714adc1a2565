// Command zencalcs analyzes calculation transcripts and renders reports offline.
package main

import "zencalcs-assistant/internal/cli"

func main() {
	cli.Execute()
}
