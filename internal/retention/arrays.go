package retention

import "github.com/lib/pq"

func workersArray(workers []string) interface{} { return pq.Array(workers) }

func campaignIDsArray(ids []string) interface{} { return pq.Array(ids) }
