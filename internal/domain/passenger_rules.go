package domain

import (
	"strings"
	"time"
)

type passengerNameMustBeValid struct {
	first string
	last  string
}

func (r passengerNameMustBeValid) Check() error {
	if strings.TrimSpace(r.first) == "" || strings.TrimSpace(r.last) == "" {
		return NewValidation("name", "first name and last name are required")
	}
	return nil
}

type dobMustNotBeFuture struct {
	dob   time.Time
	today time.Time
}

func (r dobMustNotBeFuture) Check() error {
	if r.dob.After(r.today) {
		return NewValidation("dob", "date of birth cannot be in the future")
	}
	return nil
}

type ageMustMatchType struct {
	dob           time.Time
	today         time.Time
	passengerType PassengerType
}

func (r ageMustMatchType) Check() error {
	age := yearsBetween(r.dob, r.today)

	switch r.passengerType {
	case PassengerTypeAdult:
		if age < 12 {
			return NewBusinessRule("adult must be >= 12 years old")
		}
	case PassengerTypeChild:
		if age < 2 || age >= 12 {
			return NewBusinessRule("child must be between 2 and 11")
		}
	case PassengerTypeInfant:
		if age >= 2 {
			return NewBusinessRule("infant must be < 2 years old")
		}
	}
	return nil
}

func yearsBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24 / 365)
}
