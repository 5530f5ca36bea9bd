package main

import "github.com/votersentry/voter-sentry/cmd"

func main() {
	cmd.Execute()
}
