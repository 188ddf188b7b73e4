package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

type note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

func main() {
	// Database connection
	db, err := sql.Open("postgres", "host=localhost port=5432 user=cabinex_user password=cabinex_password dbname=cabinex_db sslmode=disable")
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	// Test connection
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	fmt.Println("Connected to database successfully")

	// Demo leads around Colombo
	leads := []struct {
		id      string
		name    string
		phone   string
		address string
		lat     float64
		lng     float64
		status  string
		note    string
	}{
		{"lead-demo-1", "Nimal Perera", "+94771234501", "45 Galle Road, Colombo 03", 6.9147, 79.8515, "new", "Wants a full kitchen pantry, dark wood finish."},
		{"lead-demo-2", "Shanika Fernando", "+94771234502", "12 Ward Place, Colombo 07", 6.9108, 79.8670, "invoice_sent", "Sent LKR 5000 visit charge invoice."},
		{"lead-demo-3", "Ruwan Silva", "+94771234503", "88 Marine Drive, Dehiwala", 6.8511, 79.8655, "paid", "Visit charge paid, waiting for measurement visit."},
		{"lead-demo-4", "Dilani Jayasuriya", "+94771234504", "230 Havelock Road, Colombo 05", 6.8889, 79.8636, "quoted", "Quoted 450k for pantry plus TV unit."},
		{"lead-demo-5", "Kasun Wickramasinghe", "+94771234505", "7 Temple Lane, Nugegoda", 6.8649, 79.8997, "won", "Installation scheduled for next month."},
	}

	for _, l := range leads {
		notes := []note{}
		if l.note != "" {
			notes = append(notes, note{
				ID:        l.id + "-note-1",
				Text:      l.note,
				Author:    "seed",
				CreatedAt: time.Now(),
			})
		}
		notesJSON, _ := json.Marshal(notes)

		query := `
			INSERT INTO leads (id, customer_name, whatsapp_number, address_label, lat, lng, status, notes, visits, initial_images, generated_designs, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '[]', '[]', '[]', 'seed', $9)
			ON CONFLICT (id) DO NOTHING
		`

		result, err := db.Exec(query, l.id, l.name, l.phone, l.address, l.lat, l.lng, l.status, notesJSON, time.Now())
		if err != nil {
			log.Printf("Error inserting %s: %v", l.id, err)
			continue
		}

		rowsAffected, _ := result.RowsAffected()
		fmt.Printf("Inserted %s (%s): rows_affected=%d\n", l.id, l.name, rowsAffected)
	}

	fmt.Println("Lead seeding completed!")
}
