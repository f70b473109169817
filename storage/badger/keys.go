package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/corpus/core"
)

// Key prefixes for different data types
const (
	rawRecordPrefix      = "rawrec"
	rawLatestPrefix      = "rawlat"
	batchPrefix          = "batrec"
	fingerprintPrefix    = "fprrec"
	fingerprintIDPrefix  = "fpride"
	fingerprintUsePrefix = "fpruse"
	elementPrefix        = "elerec"
	elementPriorPrefix   = "elepri"
	sectionPrefix        = "secrec"
	vectorPrefix         = "vecrec"
)

// pathHash condenses arbitrary path/key tuples into a fixed-size key part.
// Paths can contain any byte, so they are hashed rather than embedded; the
// NUL separators keep ("a","bc") distinct from ("ab","c").
func pathHash(parts ...string) string {
	joined := ""
	for i, p := range parts {
		if i > 0 {
			joined += "\x00"
		}
		joined += p
	}
	return core.HashText(joined)
}

// makeRawRecordKey generates a key for one document version.
// Versions are BigEndian so lexicographic iteration follows version order.
func makeRawRecordKey(sourceID string, version int) []byte {
	prefix := []byte(fmt.Sprintf("%s:%s:", rawRecordPrefix, pathHash(sourceID)))
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(version))
	return buf
}

// makeRawLatestKey generates the latest-version pointer key for a source.
func makeRawLatestKey(sourceID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", rawLatestPrefix, pathHash(sourceID)))
}

// makeBatchKey generates a key for a batch by ID.
func makeBatchKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", batchPrefix, id))
}

// makeFingerprintKey generates the exact per-usage-location fingerprint key.
func makeFingerprintKey(sourcePath, fieldKey, usagePath string) []byte {
	return []byte(fmt.Sprintf("%s:%s", fingerprintPrefix, pathHash(sourcePath, fieldKey, usagePath)))
}

// makeFingerprintIdentityKey generates the identity-level fingerprint key
// used as the fallback for records persisted without usage paths.
func makeFingerprintIdentityKey(sourcePath, fieldKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s", fingerprintIDPrefix, pathHash(sourcePath, fieldKey)))
}

// makeFingerprintUsageKey generates the per-identity usage index key. The
// usage path is hashed separately from the identity so all of an identity's
// usage locations share one iteration prefix.
func makeFingerprintUsageKey(sourcePath, fieldKey, usagePath string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", fingerprintUsePrefix, pathHash(sourcePath, fieldKey), pathHash(usagePath)))
}

// makeFingerprintUsagePrefix generates the iteration prefix for an identity's
// usage index entries.
func makeFingerprintUsagePrefix(sourcePath, fieldKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", fingerprintUsePrefix, pathHash(sourcePath, fieldKey)))
}

// makeElementKey generates a key for one enrichment result within a batch.
func makeElementKey(batchID, sourcePath, fieldKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", elementPrefix, batchID, pathHash(sourcePath, fieldKey)))
}

// makeElementBatchPrefix generates the iteration prefix for a batch's elements.
func makeElementBatchPrefix(batchID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", elementPrefix, batchID))
}

// makeElementPriorKey generates the cross-batch prior-enrichment key for a
// fragment identity.
func makeElementPriorKey(sourcePath, fieldKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s", elementPriorPrefix, pathHash(sourcePath, fieldKey)))
}

// makeSectionKey generates a key for one section within a batch.
func makeSectionKey(batchID, sectionPath, sectionURI, fieldKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", sectionPrefix, batchID, pathHash(sectionPath, sectionURI, fieldKey)))
}

// makeSectionBatchPrefix generates the iteration prefix for a batch's sections.
func makeSectionBatchPrefix(batchID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", sectionPrefix, batchID))
}

// makeVectorKey generates a key for one embedded chunk of a section.
// Chunk indexes are BigEndian so iteration follows chunk order.
func makeVectorKey(batchID, sectionPath, sectionURI, fieldKey string, chunkIndex int) []byte {
	prefix := makeVectorSectionPrefix(batchID, sectionPath, sectionURI, fieldKey)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkIndex))
	return buf
}

// makeVectorSectionPrefix generates the iteration prefix for a section's chunks.
func makeVectorSectionPrefix(batchID, sectionPath, sectionURI, fieldKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", vectorPrefix, batchID, pathHash(sectionPath, sectionURI, fieldKey)))
}
