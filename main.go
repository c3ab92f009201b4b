package main

import "lottobot/internal/app"

func main() {
	app.Main()
}
