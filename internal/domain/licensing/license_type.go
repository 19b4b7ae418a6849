package licensing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LicenseType is the kind of permit being applied for
type LicenseType string

const (
	LicenseTypeNIB           LicenseType = "NIB"
	LicenseTypeSIUP          LicenseType = "SIUP"
	LicenseTypeTDP           LicenseType = "TDP"
	LicenseTypeNPWP          LicenseType = "NPWP"
	LicenseTypeHalal         LicenseType = "HALAL"
	LicenseTypeEnvironmental LicenseType = "ENVIRONMENTAL"
	LicenseTypeExportImport  LicenseType = "EXPORT_IMPORT"
)

// AllLicenseTypes returns every license type
func AllLicenseTypes() []LicenseType {
	return []LicenseType{
		LicenseTypeNIB,
		LicenseTypeSIUP,
		LicenseTypeTDP,
		LicenseTypeNPWP,
		LicenseTypeHalal,
		LicenseTypeEnvironmental,
		LicenseTypeExportImport,
	}
}

// ParseLicenseType converts a raw string into a LicenseType
func ParseLicenseType(raw string) (LicenseType, error) {
	t := LicenseType(raw)
	if !t.IsValid() {
		return "", NewValidationError("license_type", fmt.Sprintf("unknown license type %q", raw))
	}
	return t, nil
}

// IsValid checks if the license type is a known value
func (t LicenseType) IsValid() bool {
	switch t {
	case LicenseTypeNIB, LicenseTypeSIUP, LicenseTypeTDP, LicenseTypeNPWP,
		LicenseTypeHalal, LicenseTypeEnvironmental, LicenseTypeExportImport:
		return true
	}
	return false
}

// String returns the string representation
func (t LicenseType) String() string {
	return string(t)
}

// DisplayName returns the human readable permit name
func (t LicenseType) DisplayName() string {
	switch t {
	case LicenseTypeNIB:
		return "Nomor Induk Berusaha"
	case LicenseTypeSIUP:
		return "Surat Izin Usaha Perdagangan"
	case LicenseTypeTDP:
		return "Tanda Daftar Perusahaan"
	case LicenseTypeNPWP:
		return "Nomor Pokok Wajib Pajak"
	case LicenseTypeHalal:
		return "Sertifikat Halal"
	case LicenseTypeEnvironmental:
		return "Izin Lingkungan"
	case LicenseTypeExportImport:
		return "Angka Pengenal Importir"
	}
	return string(t)
}

// DefaultProcessingDays seeds the estimate for a freshly created application
func (t LicenseType) DefaultProcessingDays() int {
	switch t {
	case LicenseTypeNIB:
		return 7
	case LicenseTypeSIUP:
		return 14
	case LicenseTypeTDP:
		return 10
	case LicenseTypeNPWP:
		return 3
	case LicenseTypeHalal:
		return 30
	case LicenseTypeEnvironmental:
		return 45
	case LicenseTypeExportImport:
		return 21
	}
	return 14
}

// DefaultIssuingAuthority is the office that issues this license type
func (t LicenseType) DefaultIssuingAuthority() string {
	switch t {
	case LicenseTypeNIB:
		return "Lembaga OSS"
	case LicenseTypeSIUP, LicenseTypeTDP:
		return "Dinas Perdagangan"
	case LicenseTypeNPWP:
		return "Direktorat Jenderal Pajak"
	case LicenseTypeHalal:
		return "BPJPH"
	case LicenseTypeEnvironmental:
		return "Dinas Lingkungan Hidup"
	case LicenseTypeExportImport:
		return "Kementerian Perdagangan"
	}
	return ""
}

// ValidityYears is the default lifetime of an issued license. Zero means no expiry.
func (t LicenseType) ValidityYears() int {
	switch t {
	case LicenseTypeSIUP, LicenseTypeTDP, LicenseTypeExportImport:
		return 5
	case LicenseTypeHalal:
		return 4
	case LicenseTypeNIB, LicenseTypeNPWP, LicenseTypeEnvironmental:
		return 0
	}
	return 0
}

// Fee returns the government fee in rupiah stamped on new applications
func (t LicenseType) Fee() decimal.Decimal {
	switch t {
	case LicenseTypeHalal:
		return decimal.NewFromInt(650000)
	case LicenseTypeEnvironmental:
		return decimal.NewFromInt(1500000)
	case LicenseTypeExportImport:
		return decimal.NewFromInt(500000)
	case LicenseTypeNIB, LicenseTypeSIUP, LicenseTypeTDP, LicenseTypeNPWP:
		return decimal.Zero
	}
	return decimal.Zero
}
