// Copyright 2023-2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package account_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ledgerglass/lg-api/account"
)

const profileDoc = `
etf_symbols = ["SPY", "SGOV"]
principal = 17000

[[accounts]]
name = "Savings"
role = "cash"
currency = "SGD"
principal = 2500
`

var _ = Describe("AssetProfile", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("parses the TOML profile", func() {
		fn := filepath.Join(dir, "profile.toml")
		Expect(os.WriteFile(fn, []byte(profileDoc), 0600)).To(Succeed())

		profile, err := account.LoadAssetProfile(fn)
		Expect(err).To(BeNil())
		Expect(profile.ETFSymbols).To(Equal([]string{"SPY", "SGOV"}))
		Expect(profile.Principal).To(BeNumerically("==", 17000))
		Expect(profile.Accounts).To(HaveLen(1))
		Expect(profile.Accounts[0].Name).To(Equal("Savings"))
	})

	It("accepts principals written as integers or floats", func() {
		fn := filepath.Join(dir, "profile.toml")
		doc := `
principal = 20000

[[accounts]]
name = "Savings"
principal = 2500.50
`
		Expect(os.WriteFile(fn, []byte(doc), 0600)).To(Succeed())

		profile, err := account.LoadAssetProfile(fn)
		Expect(err).To(BeNil())
		Expect(profile.Principal).To(BeNumerically("==", 20000))
		Expect(profile.Accounts[0].Principal).To(BeNumerically("~", 2500.50, 1e-9))
	})

	It("errors on a missing file", func() {
		_, err := account.LoadAssetProfile(filepath.Join(dir, "missing.toml"))
		Expect(err).ToNot(BeNil())
	})

	It("attributes principal onto matching sub-accounts", func() {
		fn := filepath.Join(dir, "profile.toml")
		Expect(os.WriteFile(fn, []byte(profileDoc), 0600)).To(Succeed())
		snapPath := filepath.Join(dir, "snapshot.json")
		Expect(os.WriteFile(snapPath, []byte(snapshotDoc), 0600)).To(Succeed())

		profile, err := account.LoadAssetProfile(fn)
		Expect(err).To(BeNil())

		store := &account.ProfiledSnapshotStore{
			Store:   &account.FileSnapshotStore{Path: snapPath},
			Profile: profile,
		}
		snapshot, err := store.Load(context.Background())
		Expect(err).To(BeNil())

		Expect(snapshot.Accounts[0].Name).To(Equal("Brokerage"))
		Expect(snapshot.Accounts[0].Principal).To(BeNumerically("==", 0))
		Expect(snapshot.Accounts[1].Name).To(Equal("Savings"))
		Expect(snapshot.Accounts[1].Principal).To(BeNumerically("==", 2500))
	})
})
