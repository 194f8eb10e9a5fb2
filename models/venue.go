package models

import "fmt"

// Venue is a boat race stadium
type Venue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Venues lists the 24 stadiums keyed by their two digit stadium number
var Venues = []Venue{
	{ID: "01", Name: "桐生"},
	{ID: "02", Name: "戸田"},
	{ID: "03", Name: "江戸川"},
	{ID: "04", Name: "平和島"},
	{ID: "05", Name: "多摩川"},
	{ID: "06", Name: "浜名湖"},
	{ID: "07", Name: "蒲郡"},
	{ID: "08", Name: "常滑"},
	{ID: "09", Name: "津"},
	{ID: "10", Name: "三国"},
	{ID: "11", Name: "びわこ"},
	{ID: "12", Name: "住之江"},
	{ID: "13", Name: "尼崎"},
	{ID: "14", Name: "鳴門"},
	{ID: "15", Name: "丸亀"},
	{ID: "16", Name: "児島"},
	{ID: "17", Name: "宮島"},
	{ID: "18", Name: "徳山"},
	{ID: "19", Name: "下関"},
	{ID: "20", Name: "若松"},
	{ID: "21", Name: "芦屋"},
	{ID: "22", Name: "福岡"},
	{ID: "23", Name: "唐津"},
	{ID: "24", Name: "大村"},
}

// VenueByNumber resolves a stadium number to its venue
func VenueByNumber(number int) (Venue, bool) {
	id := fmt.Sprintf("%02d", number)
	for _, v := range Venues {
		if v.ID == id {
			return v, true
		}
	}
	return Venue{}, false
}

// IsKnownVenue reports whether the place name is one of the stadiums
func IsKnownVenue(name string) bool {
	for _, v := range Venues {
		if v.Name == name {
			return true
		}
	}
	return false
}
