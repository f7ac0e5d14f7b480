/*
 Licensed to the Apache Software Foundation (ASF) under one
 or more contributor license agreements.  See the NOTICE file
 distributed with this work for additional information
 regarding copyright ownership.  The ASF licenses this file
 to you under the Apache License, Version 2.0 (the
 "License"); you may not use this file except in compliance
 with the License.  You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package metrics

import "sync"

var once sync.Once
var m *Metrics

// Metrics is the top level container for all metrics exported by this module.
type Metrics struct {
	preemption CorePreemptionMetrics
}

func init() {
	once.Do(func() {
		m = &Metrics{
			preemption: InitPreemptionMetrics(),
		}
	})
}

// GetPreemptionMetrics returns the singleton preemption cycle metrics.
func GetPreemptionMetrics() CorePreemptionMetrics {
	return m.preemption
}
