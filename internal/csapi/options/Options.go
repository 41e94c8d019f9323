package options

import (
	"net/url"
	"strconv"
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

func ItemsPerPage(value int) Option {
	return func(f *OptionStruct) {
		f.Key = "items_per_page"
		f.Value = strconv.Itoa(value)
	}
}

func CompanyID(value int) Option {
	return func(f *OptionStruct) {
		f.Key = "company_id"
		f.Value = strconv.Itoa(value)
	}
}

func ParentID(value int) Option {
	return func(f *OptionStruct) {
		f.Key = "parent_id"
		f.Value = strconv.Itoa(value)
	}
}

func Values(opts ...Option) url.Values {
	params := url.Values{}
	Option := new(OptionStruct)
	for _, field := range opts {
		field(Option)
		params.Set(Option.Key, Option.Value)
	}
	return params
}
