package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-resty/resty/v2"
)

/**
* Object Mapper (from couchdb resty response to object)
**/

func MapToObject(resp interface{}, obj interface{}) error {
	if response, ok := resp.(*resty.Response); ok {
		data := response.Body()

		// Check if obj is a pointer to a struct
		val := reflect.ValueOf(obj)
		if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
			return errors.New("obj is not a pointer to a struct")
		}

		err := json.Unmarshal(data, obj)
		if err != nil {
			return fmt.Errorf("%s cannot be mapped to the given object", response.Body())
		}

		return nil
	}
	return errors.New("resp is not a resty.Response")
}

// MapToFindResults unmarshals the docs array of a _find response into the given
// slice pointer (e.g. *[]types.Transaction)
func MapToFindResults(resp interface{}, docsSlice interface{}) error {
	if response, ok := resp.(*resty.Response); ok {
		var findResult struct {
			Docs     json.RawMessage `json:"docs"`
			Bookmark string          `json:"bookmark"`
		}
		if err := json.Unmarshal(response.Body(), &findResult); err != nil {
			return fmt.Errorf("%s is not a _find response", response.Body())
		}
		if len(findResult.Docs) == 0 {
			return nil
		}
		if err := json.Unmarshal(findResult.Docs, docsSlice); err != nil {
			return fmt.Errorf("_find docs cannot be mapped to the given slice: %s", err.Error())
		}
		return nil
	}
	return errors.New("resp is not a resty.Response")
}

// MapToFindDocs returns the docs of a _find response as generic maps
func MapToFindDocs(resp interface{}) ([]interface{}, error) {
	var docs []interface{}
	if err := MapToFindResults(resp, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
