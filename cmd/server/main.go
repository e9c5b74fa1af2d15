package main

import "github.com/jengzang/site-fence-backend-go/cmd/server/cmd"

func main() {
	cmd.Execute()
}
