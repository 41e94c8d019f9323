package options

import (
	"net/url"
	"strconv"
	"time"
)

type OptionStruct struct {
	Key   string
	Value string
}

type Option func(*OptionStruct)

func Page(value int) Option {
	return func(f *OptionStruct) {
		f.Key = "page"
		f.Value = strconv.Itoa(value)
	}
}

func Limit(value int) Option {
	return func(f *OptionStruct) {
		f.Key = "limit"
		f.Value = strconv.Itoa(value)
	}
}

// ChangedSince фильтр delta-синхронизации, только дата.
func ChangedSince(value time.Time) Option {
	return func(f *OptionStruct) {
		f.Key = "changed_since"
		f.Value = value.Format("2006-01-02")
	}
}

func Values(opts ...Option) url.Values {
	params := url.Values{}
	for _, opt := range opts {
		o := new(OptionStruct)
		opt(o)
		params.Set(o.Key, o.Value)
	}
	return params
}
