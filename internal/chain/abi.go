package chain

// ABI фрагменты только с теми методами, которые вызывает клиент

const gameABI = `[
{"inputs":[{"internalType":"address","name":"","type":"address"}],"name":"currentGames","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"uint256","name":"gameId","type":"uint256"}],"name":"game","outputs":[{"components":[
  {"internalType":"uint256","name":"gameId","type":"uint256"},
  {"components":[
    {"internalType":"address","name":"addr","type":"address"},
    {"internalType":"uint256[4]","name":"placedCards","type":"uint256[4]"},
    {"components":[
      {"internalType":"bool","name":"used","type":"bool"},
      {"internalType":"uint8","name":"powerType","type":"uint8"},
      {"internalType":"uint256","name":"value","type":"uint256"}
    ],"internalType":"struct UsedPower[4]","name":"usedPowers","type":"tuple[4]"},
    {"internalType":"bool[4]","name":"lent","type":"bool[4]"}
  ],"internalType":"struct Player[2]","name":"player","type":"tuple[2]"},
  {"internalType":"bool","name":"started","type":"bool"},
  {"internalType":"bool","name":"finished","type":"bool"},
  {"internalType":"uint256","name":"turn","type":"uint256"},
  {"internalType":"address","name":"winner","type":"address"},
  {"internalType":"uint256","name":"round","type":"uint256"},
  {"internalType":"uint256","name":"lastAction","type":"uint256"},
  {"internalType":"uint256","name":"bank","type":"uint256"}
],"internalType":"struct GameInfo","name":"","type":"tuple"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"uint256","name":"gameId","type":"uint256"},{"internalType":"address","name":"player","type":"address"}],"name":"getPlayerInventory","outputs":[{"components":[
  {"internalType":"uint256","name":"tokenId","type":"uint256"},
  {"internalType":"uint256","name":"balance","type":"uint256"}
],"internalType":"struct InventoryItem[]","name":"","type":"tuple[]"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address","name":"player","type":"address"}],"name":"playerGames","outputs":[{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"uint256","name":"gameId","type":"uint256"},{"internalType":"uint256","name":"round","type":"uint256"}],"name":"getRoundWinner","outputs":[{"internalType":"int256","name":"","type":"int256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"joinPrice","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"boostPrice","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"uint256","name":"","type":"uint256"}],"name":"powerPrices","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"abortTimeout","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"joinGame","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[],"name":"leaveGame","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"uint256","name":"tokenId","type":"uint256"}],"name":"placeCard","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"uint8","name":"powerType","type":"uint8"}],"name":"usePower","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[],"name":"boost","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[],"name":"abort","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

const tokenABI = `[
{"inputs":[{"internalType":"address","name":"owner","type":"address"},{"internalType":"address","name":"spender","type":"address"}],"name":"allowance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address","name":"spender","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"approve","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const resourceABI = `[
{"inputs":[{"internalType":"address","name":"account","type":"address"},{"internalType":"address","name":"operator","type":"address"}],"name":"isApprovedForAll","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address","name":"operator","type":"address"},{"internalType":"bool","name":"approved","type":"bool"}],"name":"setApprovalForAll","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"internalType":"address","name":"account","type":"address"},{"internalType":"uint256","name":"id","type":"uint256"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address[]","name":"accounts","type":"address[]"},{"internalType":"uint256[]","name":"ids","type":"uint256[]"}],"name":"balanceOfBatch","outputs":[{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"address","name":"player","type":"address"}],"name":"ownedTokens","outputs":[{"internalType":"uint256[]","name":"","type":"uint256[]"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"resourceCount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"internalType":"uint256[]","name":"ids","type":"uint256[]"}],"name":"getResourceTypes","outputs":[{"components":[
  {"internalType":"string","name":"name","type":"string"},
  {"internalType":"uint256","name":"weight","type":"uint256"},
  {"internalType":"uint256","name":"tier","type":"uint256"},
  {"internalType":"uint256[]","name":"ingredients","type":"uint256[]"},
  {"internalType":"string","name":"ipfsHash","type":"string"}
],"internalType":"struct ResourceType[]","name":"","type":"tuple[]"}],"stateMutability":"view","type":"function"}
]`
