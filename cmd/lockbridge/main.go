// lockbridge translates between npm package-lock.json and yarn.lock files.
package main

import "github.com/anthr76/lockbridge/cmd/lockbridge/cmd"

func main() {
	cmd.Execute()
}
