package main

import "food-ordering/api/cmd"

// @title Food Ordering API
// @version 1.0
// @BasePath /api/v1
func main() {
	cmd.Execute()
}
