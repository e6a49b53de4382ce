// Package domain defines the core models of the contact book: the Contact
// entity itself and the persistence rows (key-value slots and idempotency
// records) mapped with GORM.
package domain

// Contact is a single entry of the contact book.
//
// A Contact never changes after creation; replacing one means deleting it
// and adding a new one. ID is unique within a store and is allocated as the
// smallest non-negative integer not already in use.
type Contact struct {
	ID       int    `json:"id"        example:"0"`
	Name     string `json:"name"      example:"Ivan"`
	LastName string `json:"lastName"  example:"Petrov"`
	Phone    string `json:"phone"     example:"+7 (912) 345-67-89"`
}

// Fields returns the identifying triple of the contact.
func (c Contact) Fields() ContactFields {
	return ContactFields{Name: c.Name, LastName: c.LastName, Phone: c.Phone}
}

// ContactFields is the raw, not yet validated input of a contact form.
// Two contacts are duplicates when their ContactFields are equal.
type ContactFields struct {
	Name     string `json:"name"     example:"Ivan"`
	LastName string `json:"lastName" example:"Petrov"`
	Phone    string `json:"phone"    example:"+7 (912) 345-67-89"`
}
