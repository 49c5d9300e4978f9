package pse

import "encoding/json"

type response struct {
	Value *[]rawRecord `json:"value"`
}

// rawRecord is one row of the rce-pln endpoint. dtime is the end of the period.
type rawRecord struct {
	DTime         string          `json:"dtime"`
	Period        string          `json:"period"`
	RcePln        json.RawMessage `json:"rce_pln"`
	BusinessDate  string          `json:"business_date"`
	PublicationTS string          `json:"publication_ts"`
}
