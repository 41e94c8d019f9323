package version

import "fmt"

const VERSION_MAJOR = 1
const VERSION_MINOR = 0
const VERSION_MICRO = 3

var version *Version

type Version struct {
	Major int
	Minor int
	Micro int
}

func (v *Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
}

// UserAgent значение заголовка User-Agent для запросов в PIM и витрину
func (v *Version) UserAgent() string {
	return fmt.Sprintf("PimSync/%s", v.String())
}

func GetVersion() *Version {
	return version
}

func init() {
	version = new(Version)
	version.Major = VERSION_MAJOR
	version.Minor = VERSION_MINOR
	version.Micro = VERSION_MICRO
}
