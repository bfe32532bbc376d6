// Command poolctl drives workloads against poolkit backends and reports
// their statistics.
package main

func main() {
	execute()
}
