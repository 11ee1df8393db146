package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"strings"
)

// NewFileFetcher _immediately_ loads product definitions from local files.
// These are stored in memory for low-latency reads.
//
// This expects each file in the directory to be named "{product_id}.json".
// For example, when asked to fetch the product with ID == "ctv_sports", it
// will return the data from "directory/ctv_sports.json".
func NewFileFetcher(directory string) (Fetcher, error) {
	fileInfos, err := ioutil.ReadDir(directory)
	if err != nil {
		return nil, err
	}

	products := make(map[string]*ProductDefinition, len(fileInfos))
	for _, fileInfo := range fileInfos {
		if fileInfo.IsDir() || !strings.HasSuffix(fileInfo.Name(), ".json") {
			continue
		}
		fileData, err := ioutil.ReadFile(fmt.Sprintf("%s/%s", directory, fileInfo.Name()))
		if err != nil {
			return nil, err
		}
		var product ProductDefinition
		if err := json.Unmarshal(fileData, &product); err != nil {
			return nil, fmt.Errorf("invalid product file %s: %v", fileInfo.Name(), err)
		}
		id := strings.TrimSuffix(fileInfo.Name(), ".json")
		if product.ProductID == "" {
			product.ProductID = id
		}
		products[id] = &product
	}
	return &eagerFetcher{products: products}, nil
}

type eagerFetcher struct {
	products map[string]*ProductDefinition
}

func (f *eagerFetcher) FetchProduct(ctx context.Context, productID string) (*ProductDefinition, error) {
	if product, ok := f.products[productID]; ok {
		return product, nil
	}
	return nil, &NotFoundError{ID: productID}
}
