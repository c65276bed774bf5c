package apitype

import (
	"fmt"

	exifbuilder "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

const orientationTagName = "Orientation"

// rebuildWithOrientation re-encodes the IFD chain of raw (which may be
// empty) with the orientation tag of IFD0 set to code. Values stored
// outside of the IFD entries are carried over by the builder.
func rebuildWithOrientation(raw []byte, code int) (data []byte, err error) {
	defer func() {
		if state := recover(); state != nil {
			err = fmt.Errorf("exif builder failed: %v", state)
		}
	}()

	ifdMapping, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, err
	}
	tagIndex := exifbuilder.NewTagIndex()

	var rootIb *exifbuilder.IfdBuilder
	if len(raw) > 0 {
		_, index, err := exifbuilder.Collect(ifdMapping, tagIndex, raw)
		if err != nil {
			return nil, err
		}
		rootIb = exifbuilder.NewIfdBuilderFromExistingChain(index.RootIfd)
	} else {
		rootIb = exifbuilder.NewIfdBuilder(ifdMapping, tagIndex, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)
	}

	if err := rootIb.SetStandardWithName(orientationTagName, []uint16{uint16(code)}); err != nil {
		return nil, err
	}

	return exifbuilder.NewIfdByteEncoder().EncodeToExif(rootIb)
}
