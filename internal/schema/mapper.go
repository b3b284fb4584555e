// Package schema maps the raw fields of an auditor appointment form
// (Form ADT-1) onto a fixed, human-readable record.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Source field identifiers. Every field of the form lives under one of
// these subform prefixes.
const (
	subform1 = "data[0].FormADT1_Dtls[0].Page1[0].Subform1[0]."
	subform2 = "data[0].FormADT1_Dtls[0].Page1[0].Subform2[0]."
	auditor  = "data[0].FormADT1_Dtls[0].Page1[0].Subform3[0].Subform_4aTo4h[0]."
	subform6 = "data[0].FormADT1_Dtls[0].Page1[0].Subform6[0]."
)

// Record keys, in output order. The spellings are part of the data.json
// contract and are kept as published.
const (
	KeyCIN                 = "cin"
	KeyGLN                 = "gln"
	KeyCompanyName         = "company_name"
	KeyRegisteredOffice    = "registered_office"
	KeyCompanyMail         = "company_mail"
	KeyAppointmentType     = "appointment_type"
	KeyAppointmentDate     = "appoitment_date"
	KeyAppointedPeriod     = "appointed_period"
	KeyAuditorCategory     = "auditor_category"
	KeyAuditorPAN          = "auditor_income_tax_account_number"
	KeyAuditorName         = "auditor_name"
	KeyAuditorMembership   = "auditor_membership_number"
	KeyAuditorAddress      = "auditor_address"
	KeyAuditorMail         = "auditor_mail"
	KeyFinancialYear       = "financial_year"
	KeyResolutionNumber    = "resolution_number"
	KeyDeclarationDate     = "declaration_date"
	KeySignedByDesignation = "signed_by_designation"
	KeyDirectorIDNumber    = "DIN"
)

// Raw is the field-name to value mapping read from the form.
type Raw map[string]string

// Get returns the value for name, or "" when absent.
func (r Raw) Get(name string) string {
	return r[name]
}

// Extractor derives one record value from the raw fields.
type Extractor func(Raw) string

// Entry binds an output key to its source fields and extraction rule.
type Entry struct {
	Key     string
	Sources []string
	Extract Extractor
}

// field copies one raw value.
func field(name string) Entry {
	return Entry{Sources: []string{name}, Extract: func(r Raw) string { return r.Get(name) }}
}

// period joins two dates as "<from> - <to>".
func period(from, to string) Entry {
	return Entry{
		Sources: []string{from, to},
		Extract: func(r Raw) string { return r.Get(from) + " - " + r.Get(to) },
	}
}

// singleLine replaces carriage returns with spaces.
func singleLine(name string) Entry {
	return Entry{
		Sources: []string{name},
		Extract: func(r Raw) string { return strings.ReplaceAll(r.Get(name), "\r", " ") },
	}
}

// address formats the five auditor address parts plus the PIN.
func address(line1, line2, city, state, country, pin string) Entry {
	return Entry{
		Sources: []string{line1, line2, city, state, country, pin},
		Extract: func(r Raw) string {
			return fmt.Sprintf("%s, %s, City: %s, State: %s, Country: %s, PIN: %s",
				r.Get(line1), r.Get(line2), r.Get(city), r.Get(state), r.Get(country), r.Get(pin))
		},
	}
}

func keyed(key string, e Entry) Entry {
	e.Key = key
	return e
}

// Table is the static field mapping, in output order.
var Table = []Entry{
	keyed(KeyCIN, field(subform1+"CIN_C[0]")),
	keyed(KeyGLN, field(subform1+"GLN_C[0]")),
	keyed(KeyCompanyName, field(subform1+"CompanyName_C[0]")),
	keyed(KeyRegisteredOffice, singleLine(subform1+"CompanyAdd_C[0]")),
	keyed(KeyCompanyMail, field(subform1+"EmailId_C[0]")),
	keyed(KeyAppointmentType, field(subform2+"DropDownList1[0]")),
	keyed(KeyAppointmentDate, field(subform6+"DateReceipt_D[0]")),
	keyed(KeyAppointedPeriod, period(auditor+"DateOfAccAuditedFrom_D[0]", auditor+"DateOfAccAuditedTo_D[0]")),
	keyed(KeyAuditorCategory, field(auditor+"CategoryOfAuditor[0]")),
	keyed(KeyAuditorPAN, field(auditor+"PAN_C[0]")),
	keyed(KeyAuditorName, field(auditor+"NameAuditorFirm_C[0]")),
	keyed(KeyAuditorMembership, field(auditor+"MemberShNum[0]")),
	keyed(KeyAuditorAddress, address(
		auditor+"permaddress2a_C[0]",
		auditor+"permaddress2b_C[0]",
		auditor+"City_C[0]",
		auditor+"State_P[0]",
		auditor+"Country_C[0]",
		auditor+"Pin_C[0]",
	)),
	keyed(KeyAuditorMail, field(auditor+"email[0]")),
	keyed(KeyFinancialYear, field(auditor+"NumOfFinanYear[0]")),
	keyed(KeyResolutionNumber, field(subform6+"ResoNum[0]")),
	keyed(KeyDeclarationDate, field(subform6+"DateOfAppSect_D[0]")),
	keyed(KeySignedByDesignation, field(subform6+"DesigD_C[0]")),
	keyed(KeyDirectorIDNumber, field(subform6+"DINOfDir_C[0]")),
}

// Keys returns the record keys in table order.
func Keys() []string {
	keys := make([]string, len(Table))
	for i, e := range Table {
		keys[i] = e.Key
	}
	return keys
}

// Field is one key/value pair of a Record.
type Field struct {
	Key   string
	Value string
}

// Record is the mapped form, ordered as Table.
type Record []Field

// Map applies Table to raw. Every key is present in the result.
func Map(raw Raw) Record {
	rec := make(Record, len(Table))
	for i, e := range Table {
		rec[i] = Field{Key: e.Key, Value: e.Extract(raw)}
	}
	return rec
}

// Get returns the value for key, or "" when the key is unknown.
func (r Record) Get(key string) string {
	for _, f := range r {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// AsMap returns the record as a plain map.
func (r Record) AsMap() map[string]string {
	m := make(map[string]string, len(r))
	for _, f := range r {
		m[f.Key] = f.Value
	}
	return m
}

// MarshalJSON writes the record as an object with keys in table order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalString(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := marshalString(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object written by MarshalJSON. Keys from Table
// come first in table order; any extra keys follow in sorted order.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	rec := make(Record, 0, len(m))
	for _, e := range Table {
		if v, ok := m[e.Key]; ok {
			rec = append(rec, Field{Key: e.Key, Value: v})
			delete(m, e.Key)
		}
	}
	extra := make([]string, 0, len(m))
	for k := range m {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		rec = append(rec, Field{Key: k, Value: m[k]})
	}
	*r = rec
	return nil
}

// marshalString encodes s without HTML escaping so "&" in names and
// addresses stays readable in data.json.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
