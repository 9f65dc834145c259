package main

import (
	"os"

	"woo-customer-orders-report/report-backend/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
