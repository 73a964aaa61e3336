package main

import "github.com/lmsapps/adsync/services/sync-service/internal/app"

func main() {
	app.Execute()
}
