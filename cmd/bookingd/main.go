package main

import (
	"github.com/slotwise/booking-backend/cmd"
)

func main() {
	cmd.Execute()
}
