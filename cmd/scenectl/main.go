// Command scenectl drives a scenecore World from the command line: it runs
// simulations, inspects allocator pools and writes frame captures.
package main

func main() {
	execute()
}
