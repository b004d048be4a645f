package database

// Image processing lifecycle states. Completed and failed are terminal;
// an image reaches exactly one of them once.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// IsTerminalStatus reports whether a processing status is terminal.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Detection classes emitted by the detector.
const (
	DetectionTypeAnimal  = "animal"
	DetectionTypePerson  = "person"
	DetectionTypeVehicle = "vehicle"
)

// IsValidDetectionType checks a detector class label.
func IsValidDetectionType(t string) bool {
	switch t {
	case DetectionTypeAnimal, DetectionTypePerson, DetectionTypeVehicle:
		return true
	default:
		return false
	}
}

// IUCN conservation status codes.
const (
	ConservationLC = "LC" // Least Concern
	ConservationNT = "NT" // Near Threatened
	ConservationVU = "VU" // Vulnerable
	ConservationEN = "EN" // Endangered
	ConservationCR = "CR" // Critically Endangered
	ConservationEW = "EW" // Extinct in the Wild
	ConservationEX = "EX" // Extinct
	ConservationDD = "DD" // Data Deficient
	ConservationNE = "NE" // Not Evaluated
)

// IsValidConservationStatus checks an IUCN status code.
func IsValidConservationStatus(code string) bool {
	switch code {
	case ConservationLC, ConservationNT, ConservationVU, ConservationEN,
		ConservationCR, ConservationEW, ConservationEX, ConservationDD, ConservationNE:
		return true
	default:
		return false
	}
}
